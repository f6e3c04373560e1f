package mail

import (
	htmltemplate "html/template"
	texttemplate "text/template"
)

type resetData struct {
	Product string
	Name    string
	Link    string
	Minutes int
}

var resetText = texttemplate.Must(texttemplate.New("reset.txt").Parse(`Reset Your {{.Product}} Password

Hi {{.Name}},

We received a request to reset your {{.Product}} password.

Click this link to reset your password:
{{.Link}}

This link expires in {{.Minutes}} minutes.

If you didn't request this, please ignore this email.
`))

var resetHTML = htmltemplate.Must(htmltemplate.New("reset.html").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
  </head>
  <body style="font-family: Arial, sans-serif; background-color: #f5f5f5; padding: 20px; margin: 0;">
    <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 30px; border-radius: 8px;">
      <h2 style="color: #333; text-align: center;">Reset Your Password</h2>
      <p style="color: #666; font-size: 14px;">Hi {{.Name}},</p>
      <p style="color: #666; font-size: 14px; line-height: 1.6;">
        We received a request to reset your {{.Product}} password. Click the button below to create a new password.
      </p>
      <div style="text-align: center; margin: 30px 0;">
        <a href="{{.Link}}" style="background-color: #009688; color: white; padding: 15px 40px; text-decoration: none; border-radius: 4px; font-weight: bold;">Reset Password</a>
      </div>
      <p style="color: #666; font-size: 13px;">Or copy and paste this link in your browser:</p>
      <p style="background-color: #f0f0f0; padding: 12px; border-radius: 4px; word-wrap: break-word; font-size: 12px; color: #333;">{{.Link}}</p>
      <p style="color: #856404; font-size: 12px;">
        <strong>Important:</strong> This link expires in {{.Minutes}} minutes. If you didn't request this, please ignore this email.
      </p>
    </div>
  </body>
</html>
`))
