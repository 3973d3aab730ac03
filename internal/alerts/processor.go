package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
)

// Worker processes e-mail tasks in-process.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewWorker wires every task type to the mailer.
func NewWorker(opt asynq.RedisClientOpt, mailer Mailer) *Worker {
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			queueEmails: 10,
		},
	})
	return &Worker{server: server, mux: NewMux(mailer)}
}

// NewMux builds the task routing table.
func NewMux(mailer Mailer) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskWelcomeEmail, handleWelcomeEmail(mailer))
	mux.HandleFunc(TaskSaleReserved, handleSale(mailer))
	mux.HandleFunc(TaskSaleCompleted, handleSale(mailer))
	mux.HandleFunc(TaskSaleCanceled, handleSale(mailer))
	mux.HandleFunc(TaskSellerVerified, handleSellerVerified(mailer))
	mux.HandleFunc(TaskMessageNew, handleMessageNew(mailer))
	return mux
}

// Run starts processing and blocks until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("asynq start: %w", err)
	}
	log.Printf("[notify] worker started")
	<-ctx.Done()
	w.server.Shutdown()
	log.Printf("[notify] worker stopped")
	return nil
}

// Handlers below decode payloads and hand the envelope to the mailer.

func handleWelcomeEmail(m Mailer) asynq.HandlerFunc {
	return func(_ context.Context, t *asynq.Task) error {
		var p WelcomeEmailPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		if err := m.Send(p.Envelope); err != nil {
			log.Printf("[notify][ERROR] WelcomeEmail send failed: %v", err)
			return err
		}
		log.Printf("[notify] WelcomeEmail sent -> to=%s user=%d", p.Envelope.To, p.UserID)
		return nil
	}
}

func handleSale(m Mailer) asynq.HandlerFunc {
	return func(_ context.Context, t *asynq.Task) error {
		var p SalePayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		if err := m.Send(p.Envelope); err != nil {
			log.Printf("[notify][ERROR] %s send failed: %v", t.Type(), err)
			return err
		}
		log.Printf("[notify] %s sent -> transaction=%d to=%s", t.Type(), p.TransactionID, p.Envelope.To)
		return nil
	}
}

func handleSellerVerified(m Mailer) asynq.HandlerFunc {
	return func(_ context.Context, t *asynq.Task) error {
		var p SellerVerifiedPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		if err := m.Send(p.Envelope); err != nil {
			log.Printf("[notify][ERROR] SellerVerified send failed: %v", err)
			return err
		}
		log.Printf("[notify] SellerVerified sent -> user=%d", p.UserID)
		return nil
	}
}

func handleMessageNew(m Mailer) asynq.HandlerFunc {
	return func(_ context.Context, t *asynq.Task) error {
		var p MessageNewPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		if err := m.Send(p.Envelope); err != nil {
			log.Printf("[notify][ERROR] MessageNew send failed: %v", err)
			return err
		}
		log.Printf("[notify] MessageNew sent -> thread=%d to=%s", p.ThreadID, p.Envelope.To)
		return nil
	}
}
