// Command sweep runs the reclamation jobs once and exits. It is meant for
// cron-style deployments and for draining the stores by hand.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/worketyamo/workplace/services/auth-service/internal/application/sweeper"
	"github.com/worketyamo/workplace/services/auth-service/internal/bootstrap"
	"github.com/worketyamo/workplace/services/auth-service/internal/logger"
)

func main() {
	var (
		tasks   = flag.String("tasks", "", "comma separated task names (default: all)")
		timeout = flag.Duration("timeout", 5*time.Minute, "overall deadline")
		list    = flag.Bool("list", false, "print task names and exit")
	)
	flag.Parse()

	logger.Init()

	sw, cleanup, err := bootstrap.NewSweeper()
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap failed: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if *list {
		for _, n := range sw.Tasks() {
			fmt.Println(n)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	results := sw.RunOnce(ctx, splitNames(*tasks)...)
	if code := report(results); code != 0 {
		cancel()
		cleanup()
		os.Exit(code)
	}
}

func splitNames(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// report prints one line per task and returns the exit code.
func report(results []sweeper.Result) int {
	if len(results) == 0 {
		fmt.Fprintln(os.Stderr, "no matching tasks")
		return 2
	}
	code := 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			fmt.Printf("%-22s error   %v\n", r.Task, r.Err)
			code = 1
		case r.Skipped:
			fmt.Printf("%-22s skipped (held by another replica)\n", r.Task)
		default:
			fmt.Printf("%-22s ok      removed=%d\n", r.Task, r.Removed)
		}
	}
	return code
}
