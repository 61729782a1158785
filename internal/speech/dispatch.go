package speech

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"medassist/internal/model"
)

// Dispatcher hands a speech job off for background playback. The caller never
// waits on, cancels, or observes the job after dispatch.
type Dispatcher interface {
	Dispatch(job model.SpeechJob)
}

// DirectDispatcher synthesizes and plays in-process. Used when no message
// broker is configured; one goroutine per job.
type DirectDispatcher struct {
	cloud  Synthesizer
	local  Synthesizer
	player *Player
}

func NewDirectDispatcher(cloud, local Synthesizer, player *Player) *DirectDispatcher {
	return &DirectDispatcher{cloud: cloud, local: local, player: player}
}

func (d *DirectDispatcher) Dispatch(job model.SpeechJob) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		synth := d.cloud
		if job.Offline || synth == nil {
			synth = d.local
		}
		if synth == nil {
			log.Warn().Msg("speech dispatch dropped, no synthesizer configured")
			return
		}

		audio, err := synth.Synthesize(ctx, job.Text, job.VoiceID)
		if err != nil {
			log.Warn().Err(err).Msg("background speech synthesis failed")
			return
		}
		if err := d.player.Play(ctx, audio); err != nil {
			log.Warn().Err(err).Msg("background speech playback failed")
		}
	}()
}
