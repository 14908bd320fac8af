package auth

import (
	"errors"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

func domainCode(err error) string {
	if err == nil {
		return ""
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "non_domain_error"
}

// auditFailure attaches the error code so audit lines can be grouped by reason.
func auditFailure(fields map[string]string, err error) map[string]string {
	out := make(map[string]string, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["code"] = domainCode(err)
	return out
}

// outcome is the metric label for a finished call: "success" or the error code.
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return domainCode(err)
}
