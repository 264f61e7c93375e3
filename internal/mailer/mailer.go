package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Assignment carries the details for a task-assignment notification.
type Assignment struct {
	To          string
	FirstName   string
	LastName    string
	TaskTitle   string
	ProjectName string
	DueDate     string
}

// Mailer delivers transactional mail over plain SMTP. The default target is
// a local relay (mailhog in development), so there is no auth or TLS here.
type Mailer struct {
	addr string
	from string

	// send is swappable for tests.
	send func(addr, from string, to []string, msg []byte) error
}

// New constructs a Mailer targeting host:port.
func New(host string, port int, from string) *Mailer {
	return &Mailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// SendTaskAssignment notifies a user that a task was assigned to them.
func (m *Mailer) SendTaskAssignment(a Assignment) error {
	subject := fmt.Sprintf("Task assigned: %s", a.TaskTitle)

	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\r\n\r\n", greetingName(a.FirstName, a.LastName, a.To))
	fmt.Fprintf(&body, "You have been assigned the task %q.\r\n", a.TaskTitle)
	if a.ProjectName != "" {
		fmt.Fprintf(&body, "Project: %s\r\n", a.ProjectName)
	}
	if a.DueDate != "" {
		fmt.Fprintf(&body, "Due: %s\r\n", a.DueDate)
	}
	body.WriteString("\r\nOpen TaskFlow to see the details.\r\n")

	return m.deliver(a.To, subject, body.String())
}

func (m *Mailer) deliver(to, subject, body string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return m.send(m.addr, m.from, []string{to}, []byte(msg.String()))
}

var titleCaser = cases.Title(language.English, cases.NoLower)

// greetingName picks the friendliest available form of address. Stored
// usernames arrive lowercased, so bare-lowercase names get title-cased.
func greetingName(first, last, email string) string {
	name := strings.TrimSpace(first + " " + last)
	if name == "" {
		at := strings.IndexByte(email, '@')
		if at <= 0 {
			return "there"
		}
		name = email[:at]
	}
	if name == strings.ToLower(name) {
		return titleCaser.String(name)
	}
	return name
}
