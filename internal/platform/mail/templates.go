// Copyright (c) 2026 JadeWellness. All rights reserved.

package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

const layoutOpen = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">`

var templates = template.Must(template.New("mail").Parse(`
{{define "welcome"}}` + layoutOpen + `
<h2>Welcome to JadeWellness, {{.Name}}!</h2>
<p>Thank you for joining our healthcare platform. We're excited to help you manage your health needs.</p>
<p>Explore our services, book appointments, and connect with our community.</p>
<p style="margin-top: 20px;">Best regards,<br/>The JadeWellness Team</p>
</div>{{end}}

{{define "passwordReset"}}` + layoutOpen + `
<h2>Password Reset Request</h2>
<p>Dear {{.Name}},</p>
<p>We received a request to reset your password. Click the link below to reset it:</p>
<a href="{{.Link}}" style="display: inline-block; padding: 10px 20px; background-color: #007bff; color: white; text-decoration: none; border-radius: 5px;">Reset Password</a>
<p>This link expires in 1 hour. If you didn't request this, please ignore this email.</p>
<p style="margin-top: 20px;">Best regards,<br/>The JadeWellness Team</p>
</div>{{end}}

{{define "twoFactorSetup"}}` + layoutOpen + `
<h2>Two-Factor Authentication Setup - JadeWellness</h2>
<p>Dear {{.Name}},</p>
<p>You have successfully set up two-factor authentication for your JadeWellness account.</p>
<p><strong>Your Backup Codes:</strong></p>
<div style="background-color: #f5f5f5; padding: 15px; border-radius: 5px; margin: 15px 0;">
{{range .Codes}}<div style="font-family: monospace; font-size: 16px; margin: 5px 0;">{{.}}</div>
{{end}}</div>
<p><strong>Important:</strong></p>
<ul>
<li>Store these backup codes in a safe place</li>
<li>Each code can only be used once</li>
<li>Use these codes if you lose access to your authenticator app</li>
</ul>
<p style="margin-top: 20px;">Best regards,<br/>The JadeWellness Security Team</p>
</div>{{end}}

{{define "clinicianWelcome"}}` + layoutOpen + `
<h2>Welcome to JadeWellness Doctor Portal</h2>
<p>Dear Dr. {{.Name}},</p>
<p>Your doctor account has been successfully created on the JadeWellness platform.</p>
<p><strong>Login Credentials:</strong></p>
<ul>
<li><strong>Email:</strong> {{.Email}}</li>
<li><strong>Temporary Password:</strong> {{.Password}}</li>
</ul>
<p>Please log in and change your password immediately for security reasons.</p>
<p style="margin-top: 20px;">Best regards,<br/>The JadeWellness Team</p>
</div>{{end}}
`))

// # Builders

// Welcome is sent after patient registration.
func Welcome(to, name string) (Message, error) {
	return render(to, "Welcome to JadeWellness", "welcome", struct{ Name string }{name})
}

// PasswordReset carries the one-hour reset link.
func PasswordReset(to, name, link string) (Message, error) {
	return render(to, "Password Reset Request - JadeWellness", "passwordReset", struct {
		Name string
		Link string
	}{name, link})
}

// TwoFactorSetup lists the freshly generated backup codes.
func TwoFactorSetup(to, name string, codes []string) (Message, error) {
	return render(to, "Two-Factor Authentication Setup - JadeWellness", "twoFactorSetup", struct {
		Name  string
		Codes []string
	}{name, codes})
}

// ClinicianWelcome carries the temporary password of an admin-created clinician.
func ClinicianWelcome(to, name, email, password string) (Message, error) {
	return render(to, "Welcome to JadeWellness Doctor Portal", "clinicianWelcome", struct {
		Name     string
		Email    string
		Password string
	}{name, email, password})
}

func render(to, subject, name string, data any) (Message, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, name, data); err != nil {
		return Message{}, fmt.Errorf("mail_template_%s_failed: %w", name, err)
	}
	return Message{To: to, Subject: subject, HTML: body.String()}, nil
}
