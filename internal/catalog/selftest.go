package catalog

import (
	"context"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"sigmakit/internal/boolexpr"
	"sigmakit/internal/codec"
	"sigmakit/internal/crypto"
	"sigmakit/internal/debuglog"
	"sigmakit/internal/metrics"
	"sigmakit/internal/sigma"
)

// Result is what one self-test run observed for an entry.
type Result struct {
	Name        string
	Accepted    bool
	Simulated   bool
	FullBytes   int
	CompBytes   int
	Fingerprint string
}

// Check runs entry e end to end: an honest run checked with batched
// equations, a simulated transcript, and a compression round trip that must
// reproduce an accepted transcript.
func Check(e Entry, rnd io.Reader, lim codec.Limits) (Result, error) {
	res := Result{Name: e.Name}
	tr, err := sigma.Run(e.Protocol, rnd, e.Input, e.Secret)
	if err != nil {
		return res, fmt.Errorf("%s: run: %w", e.Name, err)
	}
	expr, err := e.Protocol.CheckExpr(e.Input, tr.Announcement(), tr.Challenge(), tr.Response())
	if err != nil {
		return res, fmt.Errorf("%s: check: %w", e.Name, err)
	}
	if res.Accepted, err = boolexpr.EvaluateBatch(expr, rnd); err != nil {
		return res, fmt.Errorf("%s: batch: %w", e.Name, err)
	}
	if direct := expr.Evaluate(); direct != res.Accepted {
		return res, fmt.Errorf("%s: batched verdict %v, direct %v", e.Name, res.Accepted, direct)
	}

	c, err := sigma.GenerateChallenge(e.Protocol, rnd, e.Input)
	if err != nil {
		return res, fmt.Errorf("%s: challenge: %w", e.Name, err)
	}
	sim, err := e.Protocol.SimulateTranscript(rnd, e.Input, c)
	if err != nil {
		return res, fmt.Errorf("%s: simulate: %w", e.Name, err)
	}
	if res.Simulated, err = sigma.CheckTranscript(e.Protocol, e.Input, sim); err != nil {
		return res, fmt.Errorf("%s: check simulated: %w", e.Name, err)
	}

	full, err := codec.MarshalWithLimits(tr.Repr(), lim)
	if err != nil {
		return res, fmt.Errorf("%s: encode: %w", e.Name, err)
	}
	comp, err := e.Protocol.CompressTranscript(e.Input, tr)
	if err != nil {
		return res, fmt.Errorf("%s: compress: %w", e.Name, err)
	}
	compBytes, err := codec.MarshalWithLimits(comp, lim)
	if err != nil {
		return res, fmt.Errorf("%s: encode compressed: %w", e.Name, err)
	}
	back, err := e.Protocol.DecompressTranscript(e.Input, comp)
	if err != nil {
		return res, fmt.Errorf("%s: decompress: %w", e.Name, err)
	}
	// the announcement is recomputed from the response on decompression, so
	// only an accepted transcript comes back whole. A rejected one must keep
	// its challenge and response.
	if res.Accepted {
		if !back.Repr().Equal(tr.Repr()) {
			return res, fmt.Errorf("%s: decompressed transcript differs", e.Name)
		}
	} else if !back.Challenge().Repr().Equal(tr.Challenge().Repr()) || !back.Response().Repr().Equal(tr.Response().Repr()) {
		return res, fmt.Errorf("%s: decompressed challenge or response differs", e.Name)
	}
	res.FullBytes, res.CompBytes = len(full), len(compBytes)
	res.Fingerprint = crypto.Fingerprint(e.Name, full)
	return res, nil
}

// SelfTest checks every entry concurrently. Each entry draws from its own
// reader derived from seed, so results do not depend on scheduling.
func SelfTest(ctx context.Context, entries []Entry, seed string, lim codec.Limits, m *metrics.Metrics) ([]Result, error) {
	out := make([]Result, len(entries))
	eg, ctx := errgroup.WithContext(ctx)
	for i, e := range entries {
		i, e := i, e
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := Check(e, Reader(seed+"/selftest/"+e.Name), lim)
			if err != nil {
				return err
			}
			if m != nil {
				m.IncProofs()
				m.IncSimulated()
			}
			out[i] = res
			debuglog.WithFields(log.Fields{
				"statement":   res.Name,
				"accepted":    res.Accepted,
				"fingerprint": res.Fingerprint,
			}).Debug("selftest entry done")
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
