package provider

import (
	"go.uber.org/zap"

	"github.com/machinefabric/unirun-apps/unirun"
)

// DeliveryReport summarizes one streamed delivery
type DeliveryReport struct {
	Generation uint64
	Total      int
	Delivered  int
	Retries    int
	Aborted    bool
}

type ackVerdict int

const (
	ackAdvance ackVerdict = iota
	ackRetry
	ackAbort
)

// classifyAck decides what the host's response to a hit attempt means.
// Only an Ok result answering this exact attempt advances the stream.
func classifyAck(resp *unirun.Package, attempt unirun.PackageId) (ackVerdict, error) {
	switch resp.Payload.Type {
	case unirun.PayloadResult:
		res := resp.Payload.Result
		if res.AnsweredID == attempt && res.Ok() {
			return ackAdvance, nil
		}
		return ackRetry, nil

	case unirun.PayloadCommand:
		if resp.Payload.Command.Kind == unirun.CommandAbort {
			return ackAbort, nil
		}
		return 0, protocolError("await hit ack", "unexpected command %s during delivery", resp.Payload.Command.Kind)

	default:
		return 0, protocolError("await hit ack", "unexpected %s during delivery", resp.Payload.Type)
	}
}

// deliver streams the current generation one hit at a time. Every attempt is
// a new package with a fresh id; hit i+1 is not sent until the host has
// acknowledged the latest attempt of hit i. An in-stream ABORT ends delivery
// early.
func (p *Provider) deliver() (DeliveryReport, error) {
	report := DeliveryReport{
		Generation: p.results.Generation(),
		Total:      p.results.Len(),
	}

	for i := 0; i < p.results.Len(); {
		hit := p.results.Hit(i)
		pkg := unirun.NewHitPackage(hit)

		p.log.Debug("sending hit", zap.Int("index", i), zap.Stringer("hit", hit), zap.Stringer("id", pkg.ID))
		if err := p.write("send hit", pkg); err != nil {
			return report, err
		}

		resp, err := p.read("await hit ack")
		if err != nil {
			return report, err
		}
		p.log.Debug("got response", zap.Stringer("package", resp))

		verdict, err := classifyAck(resp, pkg.ID)
		if err != nil {
			return report, err
		}
		switch verdict {
		case ackAdvance:
			report.Delivered++
			i++
		case ackRetry:
			report.Retries++
		case ackAbort:
			report.Aborted = true
			return report, nil
		}
	}
	return report, nil
}
