package auth

import "time"

// LatencyRecorder はハッシュ処理の所要時間を記録する。
type LatencyRecorder interface {
	RecordHashLatency(duration time.Duration)
}

// instrumentedHasher はHash/Verifyの所要時間を記録するPasswordHasher。
type instrumentedHasher struct {
	inner    PasswordHasher
	recorder LatencyRecorder
}

// InstrumentHasher はhの各呼び出しの所要時間をrecorderに記録するPasswordHasherを返す。
// recorderがnilの場合はhをそのまま返す。
func InstrumentHasher(h PasswordHasher, recorder LatencyRecorder) PasswordHasher {
	if recorder == nil {
		return h
	}
	return &instrumentedHasher{inner: h, recorder: recorder}
}

func (h *instrumentedHasher) Hash(plaintext string) (string, error) {
	start := time.Now()
	defer func() { h.recorder.RecordHashLatency(time.Since(start)) }()
	return h.inner.Hash(plaintext)
}

func (h *instrumentedHasher) Verify(plaintext, digest string) bool {
	start := time.Now()
	defer func() { h.recorder.RecordHashLatency(time.Since(start)) }()
	return h.inner.Verify(plaintext, digest)
}
