package flatten

import (
	"bytes"
	"net/http"
)

// captureWriter buffers the response body and status so the late hook can
// store the page before anything reaches the client. Headers go straight to
// the underlying writer's map; they are sent when emit is called.
type captureWriter struct {
	w      http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func newCaptureWriter(w http.ResponseWriter) *captureWriter {
	return &captureWriter{w: w}
}

func (c *captureWriter) Header() http.Header {
	return c.w.Header()
}

func (c *captureWriter) WriteHeader(code int) {
	if code >= 100 && code < 200 {
		c.w.WriteHeader(code)
		return
	}
	if c.status == 0 {
		c.status = code
	}
}

func (c *captureWriter) Write(p []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	return c.buf.Write(p)
}

// Status returns the captured status, http.StatusOK if none was written.
func (c *captureWriter) Status() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func (c *captureWriter) Body() []byte {
	return c.buf.Bytes()
}

// emit sends the captured status and body unchanged.
func (c *captureWriter) emit() error {
	c.w.WriteHeader(c.Status())
	if c.buf.Len() == 0 {
		return nil
	}
	_, err := c.w.Write(c.buf.Bytes())
	return err
}

// Flush is a no-op. The body is held until emit, and flushing the
// underlying writer would commit a 200 before the real status is known.
func (c *captureWriter) Flush() {}

// FlushError is the http.ResponseController form of Flush.
func (c *captureWriter) FlushError() error {
	return nil
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (c *captureWriter) Unwrap() http.ResponseWriter {
	return c.w
}
