package mailer

import (
	"sync"

	"github.com/osteele/liquid"
)

// verificationTemplate is the body of the double opt-in email. Liquid is
// the same template language used for campaign content, so the newsletter
// templates and this transactional one render through one engine.
const verificationTemplate = `<h1>Welcome to Cosmo Explorer!</h1>
<p>Thank you for subscribing to our newsletter. Please verify your email address by clicking the link below:</p>
<p><a href="{{ verification_link }}">Verify Email</a></p>
<p>If you didn't subscribe to our newsletter, you can ignore this email or <a href="{{ unsubscribe_link }}">unsubscribe here</a>.</p>`

var (
	tmplOnce sync.Once
	tmpl     *liquid.Template
	tmplErr  error
)

// RenderVerificationEmail produces the HTML body of the verification email.
func RenderVerificationEmail(verificationLink, unsubscribeLink string) (string, error) {
	tmplOnce.Do(func() {
		tmpl, tmplErr = liquid.NewEngine().ParseString(verificationTemplate)
	})
	if tmplErr != nil {
		return "", tmplErr
	}

	out, err := tmpl.Render(liquid.Bindings{
		"verification_link": verificationLink,
		"unsubscribe_link":  unsubscribeLink,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
