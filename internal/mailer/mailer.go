package mailer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Message is one outbound verification email.
type Message struct {
	Email string
	Name  string
	Token string
}

// Sender delivers a single message. Implementations talk to an SMTP relay or
// a provider API; the default logs the message for development setups.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher coordinates outbound verification emails. Sends are queued and
// delivered by background workers so a delivery failure never reaches, let
// alone rolls back, the state transition that triggered it.
type Dispatcher interface {
	Start(ctx context.Context) error
	Shutdown()
	SendVerificationEmail(ctx context.Context, email, name, token string)
}

type Config struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
	Logger      *logrus.Logger
}

type dispatcher struct {
	cfg    Config
	sender Sender

	queue  chan Message
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewDispatcher(cfg Config, sender Sender) Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.SendTimeout == 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &dispatcher{
		cfg:    cfg,
		sender: sender,
		queue:  make(chan Message, cfg.QueueSize),
	}
}

func (d *dispatcher) Start(ctx context.Context) error {
	d.ctx, d.cancel = context.WithCancel(ctx)

	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	d.cfg.Logger.Infof("mail dispatcher started with %d workers", d.cfg.Workers)
	return nil
}

func (d *dispatcher) Shutdown() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.cfg.Logger.Info("mail dispatcher stopped")
}

// SendVerificationEmail enqueues a message without blocking the caller. When
// the queue is saturated the message is dropped and logged; the verification
// token is already persisted and a resend will mint a fresh one.
func (d *dispatcher) SendVerificationEmail(_ context.Context, email, name, token string) {
	select {
	case d.queue <- Message{Email: email, Name: name, Token: token}:
	default:
		d.cfg.Logger.Warnf("mail queue full, dropping verification email for %s", email)
	}
}

func (d *dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case msg := <-d.queue:
			sendCtx, cancel := context.WithTimeout(d.ctx, d.cfg.SendTimeout)
			if err := d.sender.Send(sendCtx, msg); err != nil {
				d.cfg.Logger.Warnf("send verification email to %s: %v", msg.Email, err)
			}
			cancel()
		}
	}
}

// LogSender writes the email to the log instead of delivering it. Used when
// no SMTP relay is configured.
type LogSender struct {
	Logger *logrus.Logger
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	if s.Logger == nil {
		return fmt.Errorf("log sender: no logger configured")
	}
	s.Logger.WithFields(logrus.Fields{
		"email": msg.Email,
		"name":  msg.Name,
	}).Infof("verification email token: %s", msg.Token)
	return nil
}
