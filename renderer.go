package auth

import (
	"fmt"
	"html"
)

// plainRenderer is the fallback used when no template engine is configured
type plainRenderer struct{}

func (plainRenderer) Render(_ string, data map[string]any) (string, error) {
	return fmt.Sprintf(
		"<p>Hello %s,</p><p>Your verification code is <strong>%s</strong>. It is valid for %v minute(s).</p>",
		html.EscapeString(fmt.Sprint(data["name"])),
		html.EscapeString(fmt.Sprint(data["code"])),
		data["minutes"],
	), nil
}
