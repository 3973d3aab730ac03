package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudo-init-do/carhub/internal/models"
)

type fakeClient struct {
	tasks []*asynq.Task
}

func (f *fakeClient) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{Type: task.Type(), Queue: queueEmails}, nil
}

type fakeMailer struct {
	sent []EmailEnvelope
	err  error
}

func (f *fakeMailer) Send(env EmailEnvelope) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, env)
	return nil
}

func testEvent() SaleEvent {
	return SaleEvent{
		Transaction: models.Transaction{ID: 7, ListingID: 3, SellerID: 1, BuyerID: 2},
		Listing:     models.Listing{ID: 3, Spec: models.Spec{Make: "Tesla", Model: "Model 3", Year: 2022}},
		To:          models.User{ID: 2, Email: "buyer@example.com"},
	}
}

func TestEnqueuerSaleReserved(t *testing.T) {
	fc := &fakeClient{}
	e := &Enqueuer{client: fc, appURL: "http://cars.test"}

	require.NoError(t, e.SaleReserved(context.Background(), testEvent()))
	require.Len(t, fc.tasks, 1)
	assert.Equal(t, TaskSaleReserved, fc.tasks[0].Type())

	var p SalePayload
	require.NoError(t, json.Unmarshal(fc.tasks[0].Payload(), &p))
	assert.EqualValues(t, 7, p.TransactionID)
	assert.Equal(t, "2022 Tesla Model 3", p.Car)
	assert.Equal(t, "buyer@example.com", p.Envelope.To)
	assert.Contains(t, p.Envelope.Body, "http://cars.test/transactions/7")
}

func TestEnqueuerMessageNew(t *testing.T) {
	fc := &fakeClient{}
	e := &Enqueuer{client: fc, appURL: "http://cars.test"}

	ev := MessageEvent{
		Message: models.Message{ID: 9, ThreadID: 4, SenderID: 2, RecipientID: 1, Body: "Is this still available?"},
		From:    models.User{ID: 2, Username: "bea"},
		To:      models.User{ID: 1, Email: "seller@example.com"},
	}
	require.NoError(t, e.MessageNew(context.Background(), ev))
	require.Len(t, fc.tasks, 1)

	var p MessageNewPayload
	require.NoError(t, json.Unmarshal(fc.tasks[0].Payload(), &p))
	assert.EqualValues(t, 4, p.ThreadID)
	assert.Equal(t, "New message from bea", p.Envelope.Subject)
	assert.Contains(t, p.Envelope.Body, "Is this still available?")
}

func TestMuxDeliversEnvelope(t *testing.T) {
	fm := &fakeMailer{}
	mux := NewMux(fm)

	payload, err := json.Marshal(SalePayload{TransactionID: 7, Envelope: EmailEnvelope{To: "a@b.c", Subject: "s", Body: "b"}})
	require.NoError(t, err)

	require.NoError(t, mux.ProcessTask(context.Background(), asynq.NewTask(TaskSaleCanceled, payload)))
	require.Len(t, fm.sent, 1)
	assert.Equal(t, "a@b.c", fm.sent[0].To)
}

func TestMuxMalformedPayloadSkipsRetry(t *testing.T) {
	mux := NewMux(&fakeMailer{})

	err := mux.ProcessTask(context.Background(), asynq.NewTask(TaskMessageNew, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestMuxPropagatesMailerError(t *testing.T) {
	boom := errors.New("smtp down")
	mux := NewMux(&fakeMailer{err: boom})

	payload, err := json.Marshal(WelcomeEmailPayload{UserID: 1, Envelope: EmailEnvelope{To: "a@b.c"}})
	require.NoError(t, err)
	assert.ErrorIs(t, mux.ProcessTask(context.Background(), asynq.NewTask(TaskWelcomeEmail, payload)), boom)
}

func TestBuildMessageDetectsHTML(t *testing.T) {
	msg := buildMessage("from@x", EmailEnvelope{To: "to@x", Subject: "hi", Body: "<html><body>hey</body></html>"})
	assert.Contains(t, msg, "Content-Type: text/html")
	assert.Contains(t, msg, "Subject: hi\r\n")
}
