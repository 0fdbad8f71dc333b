package ingestapp

import (
	"context"
	"fmt"

	gotdauth "github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
)

// configAuthenticator drives gotd's auth.Flow from config-supplied
// credentials instead of a terminal prompt. It replaces the teacher's
// core.TerminalAuthenticator (runner.go's loginSelf): the ingestor
// runs unattended, so phone/code/password come from the
// telegram.phone_number/login_code/password config keys, consulted
// only the first time the session file is empty.
type configAuthenticator struct {
	phone    string
	code     string
	password string
}

var _ gotdauth.UserAuthenticator = (*configAuthenticator)(nil)

func (a *configAuthenticator) Phone(ctx context.Context) (string, error) {
	if a.phone == "" {
		return "", fmt.Errorf("ingestapp: telegram.phone_number is required for first-time login")
	}
	return a.phone, nil
}

func (a *configAuthenticator) Password(ctx context.Context) (string, error) {
	if a.password == "" {
		return "", fmt.Errorf("ingestapp: two-factor password requested but telegram.password is empty")
	}
	return a.password, nil
}

func (a *configAuthenticator) AcceptTermsOfService(ctx context.Context, tos tg.HelpTermsOfService) error {
	return nil
}

func (a *configAuthenticator) Code(ctx context.Context, sentCode *tg.AuthSentCode) (string, error) {
	if a.code == "" {
		return "", fmt.Errorf("ingestapp: telegram sent a login code but telegram.login_code is empty; set it and restart")
	}
	return a.code, nil
}

func (a *configAuthenticator) SignUp(ctx context.Context) (gotdauth.UserInfo, error) {
	return gotdauth.UserInfo{}, fmt.Errorf("ingestapp: account sign-up is not supported, the configured phone number must already have a Telegram account")
}
