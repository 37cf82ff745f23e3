package domain

// Registration wizard steps. Step only ever increases; each endpoint requires
// the previous step to have completed.
const (
	StepStart            = 0
	StepMobileSent       = 1
	StepMobileVerified   = 2
	StepEmailSent        = 3
	StepEmailVerified    = 4
	StepDetailsSubmitted = 5
)

// RegistrationSession is the onboarding wizard's working state, kept in Redis
// under an opaque session token with a sliding TTL. Fields accumulate as the
// client walks the steps; the whole record is destroyed on completion.
type RegistrationSession struct {
	Mobile         string `json:"mobile"`
	MobileOtpHash  string `json:"mobile_otp_hash"`
	MobileVerified bool   `json:"mobile_verified"`
	Email          string `json:"email,omitempty"`
	EmailOtpHash   string `json:"email_otp_hash,omitempty"`
	EmailVerified  bool   `json:"email_verified"`
	AccountType    string `json:"account_type,omitempty"`
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	Password       string `json:"password,omitempty"`
	Country        string `json:"country,omitempty"`
	State          string `json:"state,omitempty"`
	City           string `json:"city,omitempty"`
	Step           int    `json:"step"`
}
