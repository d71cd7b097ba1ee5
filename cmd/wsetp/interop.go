package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"

	"github.com/progrium/wsetp-go/interop"
	"github.com/progrium/wsetp-go/peer"
	"github.com/progrium/wsetp-go/transport"
	"github.com/progrium/wsetp-go/worker"
	"github.com/spf13/cobra"
)

var interopCmd = &cobra.Command{
	Use:   "interop [listen-addr]",
	Short: "run the interop worker",
	Long: `Interop serves the interop worker over stdio, or over --transport at
listen-addr when one is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failure, _ := cfg.FailureMode()
		opts := []peer.Option{
			peer.WithLogger(logger.With().Str("side", "worker").Logger()),
			peer.WithFailureMode(failure),
		}

		if len(args) == 0 {
			return worker.ServeStdio(interop.Serve, opts...)
		}

		l, err := listen(cfg.Transport, args[0])
		if err != nil {
			return err
		}
		defer l.Close()
		logger.Info().Str("transport", cfg.Transport).Str("addr", args[0]).Msg("listening")

		for {
			conn, err := l.Accept()
			if err != nil {
				return err
			}
			go worker.Serve(conn, interop.Serve, nil, opts...)
		}
	},
}

func listen(proto, addr string) (transport.Listener, error) {
	switch proto {
	case "", "tcp":
		return transport.ListenTCP(addr)
	case "unix":
		return transport.ListenUnix(addr)
	case "ws":
		return transport.ListenWS(addr)
	case "quic":
		tlsConf, err := generateTLSConfig()
		if err != nil {
			return nil, err
		}
		return transport.ListenQUIC(addr, tlsConf)
	default:
		return nil, fmt.Errorf("cannot listen on transport %q", proto)
	}
}

func generateTLSConfig() (*tls.Config, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	template := x509.Certificate{SerialNumber: big.NewInt(1)}
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})

	tlsCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{tlsCert},
		NextProtos:   []string{transport.QUICProtocol},
	}, nil
}
