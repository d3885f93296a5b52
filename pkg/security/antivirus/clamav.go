package antivirus

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// chunkSize stays well below clamd's default StreamMaxLength.
const chunkSize = 64 * 1024

// ClamAV streams uploads to a clamd daemon with the INSTREAM command.
type ClamAV struct {
	address string // host:port, or a unix socket path
	timeout time.Duration
}

var _ Scanner = (*ClamAV)(nil)

func NewClamAV(address string, timeout time.Duration) *ClamAV {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ClamAV{address: address, timeout: timeout}
}

func (c *ClamAV) Name() string { return "clamav" }

func (c *ClamAV) dial(ctx context.Context) (net.Conn, error) {
	network := "tcp"
	if strings.HasPrefix(c.address, "/") {
		network = "unix"
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, network, c.address)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)
	return conn, nil
}

// Ping checks the daemon answers PONG. It lets the health check report clamd.
func (c *ClamAV) Ping(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("clamd unreachable: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("zPING\x00")); err != nil {
		return err
	}
	reply, err := readReply(conn)
	if err != nil {
		return err
	}
	if reply != "PONG" {
		return fmt.Errorf("clamd: unexpected ping reply %q", reply)
	}
	return nil
}

func (c *ClamAV) Scan(ctx context.Context, name string, data []byte) Verdict {
	conn, err := c.dial(ctx)
	if err != nil {
		return c.failed(fmt.Errorf("clamd unreachable: %w", err))
	}
	defer conn.Close()

	if err := writeStream(conn, data); err != nil {
		return c.failed(err)
	}
	reply, err := readReply(conn)
	if err != nil {
		return c.failed(err)
	}
	return c.parse(reply)
}

func (c *ClamAV) failed(err error) Verdict {
	return Verdict{Infected: true, Scanner: c.Name(), Err: err}
}

// writeStream sends zINSTREAM followed by length-prefixed chunks and the
// zero-length terminator.
func writeStream(conn net.Conn, data []byte) error {
	w := bufio.NewWriter(conn)
	if _, err := w.WriteString("zINSTREAM\x00"); err != nil {
		return err
	}

	var size [4]byte
	for len(data) > 0 {
		n := min(len(data), chunkSize)
		binary.BigEndian.PutUint32(size[:], uint32(n))
		if _, err := w.Write(size[:]); err != nil {
			return err
		}
		if _, err := w.Write(data[:n]); err != nil {
			return err
		}
		data = data[n:]
	}

	binary.BigEndian.PutUint32(size[:], 0)
	if _, err := w.Write(size[:]); err != nil {
		return err
	}
	return w.Flush()
}

// readReply reads one NUL-terminated response.
func readReply(conn net.Conn) (string, error) {
	reply, err := bufio.NewReader(conn).ReadString(0)
	if err != nil && !(errors.Is(err, io.EOF) && reply != "") {
		return "", fmt.Errorf("read clamd reply: %w", err)
	}
	return strings.TrimSpace(strings.TrimRight(reply, "\x00")), nil
}

// parse reads replies such as "stream: OK", "stream: Eicar-Signature FOUND"
// or "INSTREAM size limit exceeded. ERROR".
func (c *ClamAV) parse(reply string) Verdict {
	v := Verdict{Scanner: c.Name()}
	body := reply
	if i := strings.Index(reply, ":"); i >= 0 {
		body = strings.TrimSpace(reply[i+1:])
	}

	switch {
	case strings.HasSuffix(body, " FOUND"):
		v.Infected = true
		v.Threat = strings.TrimSuffix(body, " FOUND")
	case body == "OK":
	default:
		v.Infected = true
		v.Err = fmt.Errorf("clamd: %s", reply)
	}
	return v
}
