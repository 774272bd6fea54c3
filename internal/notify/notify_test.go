package notify

import (
	"context"
	"errors"
	"testing"
)

func TestDisabledChannels(t *testing.T) {
	s := NewSlack("")
	if err := s.Send(context.Background(), "hi"); !errors.Is(err, ErrChannelDisabled) {
		t.Errorf("slack err = %v, want ErrChannelDisabled", err)
	}

	tg, err := NewTelegram("", 0)
	if err != nil {
		t.Fatalf("NewTelegram: %v", err)
	}
	if err := tg.Send(context.Background(), "hi"); !errors.Is(err, ErrChannelDisabled) {
		t.Errorf("telegram err = %v, want ErrChannelDisabled", err)
	}

	m := NewMailer("", "", "", "", "")
	if err := m.Send(context.Background(), "a@b.c", "s", "b"); !errors.Is(err, ErrChannelDisabled) {
		t.Errorf("mailer err = %v, want ErrChannelDisabled", err)
	}
}

func TestMailerFromDefaultsToUsername(t *testing.T) {
	m := NewMailer("smtp.example.com", "587", "clinic@example.com", "pw", "")
	if m.from != "clinic@example.com" {
		t.Errorf("from = %q", m.from)
	}
	m = NewMailer("smtp.example.com", "587", "user", "pw", "noreply@example.com")
	if m.from != "noreply@example.com" {
		t.Errorf("from = %q", m.from)
	}
}
