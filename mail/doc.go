// Package mail delivers password reset emails for the authcore engine.
//
// SMTPMailer sends a multipart text and HTML message through an SMTP relay
// (Gmail on port 587 with STARTTLS by default). LogMailer writes the reset
// link to a zerolog logger instead and is meant for local development.
// Both satisfy authcore.Mailer.
package mail
