package unirun

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeConns returns a host and a provider end of an in-memory duplex stream
func pipeConns(t *testing.T) (*Conn, *Conn) {
	t.Helper()
	a, b := net.Pipe()
	host := NewStreamConn(a)
	prov := NewStreamConn(b)
	t.Cleanup(func() {
		host.Close()
		prov.Close()
	})
	return host, prov
}

func TestClientSearchAcksEveryHit(t *testing.T) {
	host, prov := pipeConns(t)
	hits := []Hit{{ID: "a"}, {ID: "b"}}

	done := make(chan error, 1)
	go func() {
		done <- func() error {
			cmd, err := prov.ReadPackage()
			if err != nil {
				return err
			}
			if err := prov.WritePackage(NewOk(cmd.ID)); err != nil {
				return err
			}
			for _, h := range hits {
				pkg := NewHitPackage(h)
				if err := prov.WritePackage(pkg); err != nil {
					return err
				}
				ack, err := prov.ReadPackage()
				if err != nil {
					return err
				}
				if ack.Payload.Result == nil || ack.Payload.Result.AnsweredID != pkg.ID {
					return errors.New("ack does not answer hit")
				}
			}
			return prov.WritePackage(NewAbort())
		}()
	}()

	var got []Hit
	err := NewClient(host).Search("x", func(h Hit) bool {
		got = append(got, h)
		return true
	})
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, hits, got)
}

func TestClientSearchAbortsWhenCallbackDeclines(t *testing.T) {
	host, prov := pipeConns(t)

	done := make(chan error, 1)
	go func() {
		done <- func() error {
			cmd, err := prov.ReadPackage()
			if err != nil {
				return err
			}
			if err := prov.WritePackage(NewOk(cmd.ID)); err != nil {
				return err
			}
			if err := prov.WritePackage(NewHitPackage(Hit{ID: "a"})); err != nil {
				return err
			}
			resp, err := prov.ReadPackage()
			if err != nil {
				return err
			}
			if !resp.IsCommand(CommandAbort) {
				return errors.New("expected in-stream abort")
			}
			return prov.WritePackage(NewAbort())
		}()
	}()

	calls := 0
	err := NewClient(host).Search("x", func(Hit) bool {
		calls++
		return false
	})
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, 1, calls)
}

func TestClientActivateSurfacesProviderError(t *testing.T) {
	host, prov := pipeConns(t)

	go func() {
		cmd, err := prov.ReadPackage()
		if err != nil {
			return
		}
		_ = prov.WritePackage(NewErr(cmd.ID, "cannot find data by hit"))
	}()

	err := NewClient(host).Activate("gone.desktop")
	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ClientErrorTypeProvider, ce.Type)
	assert.Contains(t, ce.Error(), "cannot find data by hit")
}

func TestClientDetectsCorrelationMismatch(t *testing.T) {
	host, prov := pipeConns(t)

	go func() {
		if _, err := prov.ReadPackage(); err != nil {
			return
		}
		_ = prov.WritePackage(NewOk(NewPackageId()))
	}()

	err := NewClient(host).Activate("a")
	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ClientErrorTypeCorrelation, ce.Type)
}

func TestClientQuitToleratesClosedStream(t *testing.T) {
	host, prov := pipeConns(t)

	go func() {
		if _, err := prov.ReadPackage(); err != nil {
			return
		}
		prov.Close()
	}()

	assert.NoError(t, NewClient(host).Quit())
}
