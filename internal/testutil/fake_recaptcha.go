package testutil

import "context"

// FakeRecaptchaVerifier accepts exactly one token.
type FakeRecaptchaVerifier struct {
	Token string
}

func (f *FakeRecaptchaVerifier) Verify(ctx context.Context, token string) (bool, error) {
	return token != "" && token == f.Token, nil
}
