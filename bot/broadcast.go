package bot

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

const (
	// broadcastBatchSize caps the number of in-flight deliveries; combined
	// with broadcastBatchPause it keeps the run under Telegram's rate limit.
	broadcastBatchSize  = 30
	broadcastBatchPause = time.Second
	// progressEvery is the cumulative-recipient granularity of progress
	// notices sent back to the initiator.
	progressEvery = 100
)

type copier interface {
	CopyMessage(params *telego.CopyMessageParams) (*telego.MessageID, error)
}

// BroadcastReport holds the exact per-recipient outcome counts of one run.
// Failed deliveries are not retried.
type BroadcastReport struct {
	Sent   int
	Failed int
}

// Broadcaster copies one admin-authored message to a large recipient set in
// fixed-size batches.
type Broadcaster struct {
	client    copier
	batchSize int
	pause     time.Duration
}

func NewBroadcaster(client copier) *Broadcaster {
	return &Broadcaster{
		client:    client,
		batchSize: broadcastBatchSize,
		pause:     broadcastBatchPause,
	}
}

// Broadcast copies the message identified by (fromChatID, messageID) to
// every recipient. Deliveries within a batch run concurrently and the batch
// settles completely before the next one starts. A failed delivery is
// counted and never aborts the batch or the run. The context is observed
// only at batch boundaries; a cancelled run returns the counts accumulated
// so far. The progress callback fires after a batch that crosses a
// multiple-of-100 cumulative boundary and after the final batch.
func (br *Broadcaster) Broadcast(
	ctx context.Context,
	fromChatID int64,
	messageID int,
	recipients []int64,
	progress func(done, total int),
) BroadcastReport {
	total := len(recipients)
	var report BroadcastReport

	slog.Info("bot: Broadcast started", "total", total)

	for start := 0; start < total; start += br.batchSize {
		end := min(start+br.batchSize, total)
		batch := recipients[start:end]

		var wg sync.WaitGroup
		var failed atomic.Int64
		for _, userID := range batch {
			userID := userID
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := br.client.CopyMessage(&telego.CopyMessageParams{
					ChatID:     tu.ID(userID),
					FromChatID: tu.ID(fromChatID),
					MessageID:  messageID,
				})
				if err != nil {
					slog.Debug("bot: Broadcast delivery failed", "user_id", userID, "error", err)
					failed.Add(1)
				}
			}()
		}
		wg.Wait()

		batchFailed := int(failed.Load())
		report.Failed += batchFailed
		report.Sent += len(batch) - batchFailed

		if progress != nil && (end/progressEvery > start/progressEvery || end == total) {
			progress(end, total)
		}

		if end == total {
			break
		}
		select {
		case <-ctx.Done():
			slog.Warn("bot: Broadcast cancelled", "delivered", end, "total", total)
			return report
		case <-time.After(br.pause):
		}
	}

	slog.Info("bot: Broadcast finished", "sent", report.Sent, "failed", report.Failed)
	return report
}
