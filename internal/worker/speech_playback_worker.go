package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"medassist/internal/model"
	"medassist/internal/speech"
)

// SpeechPlaybackWorker consumes speech jobs and plays them on the local audio
// device. Playback is fire-and-forget from the request's point of view: a
// failed job is logged and dropped, never retried against the caller.
type SpeechPlaybackWorker struct {
	conn      *amqp.Connection
	cloud     speech.Synthesizer
	local     speech.Synthesizer
	player    *speech.Player
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSpeechPlaybackWorker(conn *amqp.Connection, cloud, local speech.Synthesizer, player *speech.Player, queueName string) *SpeechPlaybackWorker {
	return &SpeechPlaybackWorker{
		conn:      conn,
		cloud:     cloud,
		local:     local,
		player:    player,
		queueName: queueName,
	}
}

func (w *SpeechPlaybackWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var job model.SpeechJob
				if err := json.Unmarshal(d.Body, &job); err != nil {
					log.Warn().Err(err).Msg("worker decode speech job failed")
					_ = d.Nack(false, false)
					continue
				}

				if err := w.speak(workerCtx, job); err != nil {
					log.Warn().Err(err).Msg("worker speech playback failed")
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *SpeechPlaybackWorker) speak(ctx context.Context, job model.SpeechJob) error {
	synth := w.cloud
	if job.Offline || synth == nil {
		synth = w.local
	}
	if synth == nil {
		return fmt.Errorf("no synthesizer configured")
	}

	audio, err := synth.Synthesize(ctx, job.Text, job.VoiceID)
	if err != nil {
		return fmt.Errorf("synthesize speech failed: %w", err)
	}
	if err := w.player.Play(ctx, audio); err != nil {
		return fmt.Errorf("play speech failed: %w", err)
	}
	return nil
}

func (w *SpeechPlaybackWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
