package notifier

import (
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/amirphl/options-desk/internal/utils"
)

// TelegramNotifier pushes desk events (fatal rejections, mode switches) to a
// Telegram chat.
type TelegramNotifier struct {
	client  *resty.Client
	ChatID  string
	Retries int
	Delay   time.Duration
}

func NewTelegramNotifier(token, chatID string, retries int, delay time.Duration) *TelegramNotifier {
	client := resty.New().
		SetBaseURL("https://api.telegram.org/bot" + token).
		SetTimeout(10 * time.Second)
	return &TelegramNotifier{
		client:  client,
		ChatID:  chatID,
		Retries: retries,
		Delay:   delay,
	}
}

func (t *TelegramNotifier) Send(message string) error {
	resp, err := t.client.R().
		SetFormData(map[string]string{
			"chat_id": t.ChatID,
			"text":    message,
		}).
		Post("/sendMessage")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return &SendError{Status: resp.Status()}
	}
	return nil
}

// SendWithRetry sends best-effort: failures are logged, never propagated, so
// a Telegram outage can not fail a trading request.
func (t *TelegramNotifier) SendWithRetry(message string) error {
	var err error
	for attempt := 1; attempt <= t.Retries; attempt++ {
		if err = t.Send(message); err == nil {
			return nil
		}
		utils.GetLogger().Warnf("Notifier | send attempt %d/%d failed: %v", attempt, t.Retries, err)
		if attempt < t.Retries {
			time.Sleep(t.Delay)
		}
	}
	return err
}
