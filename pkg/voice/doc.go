// Package voice joins push-to-talk capture, transcription, synthesis and
// playback into the two calls a control loop needs: Listen and Speak.
//
// Two state machines run side by side. Input moves through
// idle, listening and transcribing; output moves through idle,
// synthesizing or cache_hit, and playing. Key events are read on their
// own goroutine started by Run, so neither machine blocks the other.
//
// # Usage
//
//	v, err := voice.New(voice.Config{
//	    Transcriber: whisper,
//	    Synthesizer: speech,
//	    Recorder:    capture.NewRecorder(mic, logger),
//	    Player:      playback.NewController(speaker, logger),
//	    Keys:        hotkeySource,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := v.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer v.Close()
//
//	text, _ := v.Listen(ctx)      // blocks until the talk key is released
//	v.Speak(ctx, "Opening google") // blocks until played or skipped
//
// Synthesized audio is cached by exact text, so repeated progress
// messages are only paid for once.
package voice
