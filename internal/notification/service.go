package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"fitbook/internal/logger"
	"fitbook/internal/metrics"
)

const (
	queueKey       = "notifications"
	failedQueueKey = "notifications:failed"

	maxTries = 3
)

// Notification kinds, used as the metrics label and for log context.
const (
	KindReservationConfirmed = "reservation_confirmed"
	KindReservationCancelled = "reservation_cancelled"
	KindWaitlistJoined       = "waitlist_joined"
	KindWaitlistPromoted     = "waitlist_promoted"
)

type Job struct {
	ID      string    `json:"id"`
	Kind    string    `json:"kind"`
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

type Service struct {
	redis    *redis.Client
	from     string
	fromName string
	smtpHost string
	smtpPort string
	smtpUser string
	smtpPass string
}

func New(client *redis.Client, fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass string) *Service {
	return &Service{
		redis:    client,
		from:     fromEmail,
		fromName: fromName,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		smtpUser: smtpUser,
		smtpPass: smtpPass,
	}
}

func (s *Service) Send(ctx context.Context, kind, to, name, subject, body string) error {
	job := Job{
		ID:      uuid.NewString(),
		Kind:    kind,
		To:      to,
		Name:    name,
		Subject: subject,
		Body:    body,
		Tries:   0,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal notification job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to queue %s notification to %s: %v", kind, to, err)
		metrics.RecordNotification(kind, "queue_error")
		return err
	}

	metrics.RecordNotification(kind, "queued")
	metrics.NotificationQueueLength.Set(float64(s.QueueLength(ctx)))
	logger.Infof("Notification queued: %s to %s (job %s)", kind, to, job.ID)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("Notification worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad notification data: %v", err)
		return
	}

	job.Tries++
	logger.Infof("Sending %s notification to %s (attempt %d)", job.Kind, job.To, job.Tries)
	if err := s.sendNow(job); err != nil {
		logger.Errorf("Failed to send notification %s to %s: %v", job.ID, job.To, err)

		if job.Tries < maxTries {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
			logger.Infof("Retrying notification %s (attempt %d)", job.ID, job.Tries+1)
		} else {
			logger.Errorf("Notification %s to %s failed after %d attempts", job.ID, job.To, maxTries)
			metrics.RecordNotification(job.Kind, "failed")
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordNotification(job.Kind, "sent")
	logger.Infof("Notification %s sent to %s", job.ID, job.To)
}

func (s *Service) sendNow(job Job) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, s.from, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job Job, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, data)
	logger.Errorf("Notification %s moved to failed queue", job.ID)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

func (s *Service) SendReservationConfirmed(ctx context.Context, email, name, centerName, window string) error {
	subject := "Reservation Confirmed - " + centerName
	body := fmt.Sprintf(`Hi %s,

Your reservation is confirmed!

Center: %s
Slot: %s

See you there!

- FitBook Team`, name, centerName, window)

	return s.Send(ctx, KindReservationConfirmed, email, name, subject, body)
}

func (s *Service) SendReservationCancelled(ctx context.Context, email, name, centerName, window string) error {
	subject := "Reservation Cancelled - " + centerName
	body := fmt.Sprintf(`Hi %s,

Your reservation has been cancelled:

Center: %s
Slot: %s

- FitBook Team`, name, centerName, window)

	return s.Send(ctx, KindReservationCancelled, email, name, subject, body)
}

func (s *Service) SendWaitlistJoined(ctx context.Context, email, name, centerName, window string, position int) error {
	subject := "You're on the Waitlist - " + centerName
	body := fmt.Sprintf(`Hi %s,

The slot is currently full, so we've added you to the waitlist:

Center: %s
Slot: %s
Position: %d

We'll let you know as soon as a seat frees up.

- FitBook Team`, name, centerName, window, position)

	return s.Send(ctx, KindWaitlistJoined, email, name, subject, body)
}

func (s *Service) SendWaitlistPromoted(ctx context.Context, email, name, centerName, window string) error {
	subject := "A Seat Opened Up - " + centerName
	body := fmt.Sprintf(`Hi %s,

Good news! A seat freed up and your waitlist spot was converted into a confirmed reservation:

Center: %s
Slot: %s

See you there!

- FitBook Team`, name, centerName, window)

	return s.Send(ctx, KindWaitlistPromoted, email, name, subject, body)
}
