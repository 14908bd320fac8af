package domain

const MailTemplateOTP = "otp"

// MailRequest is what the mail worker renders and sends. Template "otp" expects OTPMailData.
type MailRequest struct {
	Recipient string      `json:"recipient"`
	Subject   string      `json:"subject"`
	Template  string      `json:"template"`
	Data      OTPMailData `json:"data"`
}

type OTPMailData struct {
	Name string `json:"name"`
	OTP  string `json:"otp"`
	Date string `json:"date"`
}
