package transport

import (
	"io"
	"os"
)

type ioduplex struct {
	io.WriteCloser
	io.ReadCloser
}

func (d *ioduplex) Close() error {
	if err := d.WriteCloser.Close(); err != nil {
		return err
	}
	if err := d.ReadCloser.Close(); err != nil {
		return err
	}
	return nil
}

// DialIO establishes a Conn using a WriteCloser and ReadCloser.
func DialIO(out io.WriteCloser, in io.ReadCloser) (Conn, error) {
	return NewStream(&ioduplex{out, in}), nil
}

// DialStdio establishes a Conn using Stdout and Stdin.
func DialStdio() (Conn, error) {
	return DialIO(os.Stdout, os.Stdin)
}
