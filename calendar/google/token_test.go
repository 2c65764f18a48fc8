package google_test

import "golang.org/x/oauth2"

var oauth2Token = oauth2.Token{
	AccessToken: "test-access-token",
	TokenType:   "Bearer",
}
