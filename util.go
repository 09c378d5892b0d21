package bnc

import (
	"encoding/hex"
	"log/slog"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// tryTwice runs f again if its first attempt fails. Opens can fail
// transiently while another process is still starting up or shutting down.
func tryTwice[T any](logger *slog.Logger, what string, f func() (T, error)) (T, error) {
	v, err := f()
	if err != nil {
		logger.Warn("bnc: retrying", "op", what, "err", err)
		v, err = f()
	}
	return v, err
}

type hexBytes []byte

func (b hexBytes) String() string {
	return hex.EncodeToString(b)
}

func hexstr(b []byte) string {
	if b == nil {
		return "<nil>"
	}
	if len(b) == 0 {
		return "<empty>"
	}
	return hex.EncodeToString(b)
}

func hexAttr(key string, b []byte) slog.Attr {
	return slog.String(key, hexstr(b))
}
