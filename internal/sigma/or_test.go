package sigma_test

import (
	"errors"
	"testing"

	"github.com/cloudflare/circl/group"
	"github.com/stretchr/testify/require"

	"sigmakit/internal/sigma"
	"sigmakit/internal/testutil"
	"sigmakit/internal/zk/dlog"
)

func TestOrProofEitherBranch(t *testing.T) {
	rnd := testutil.NewReader(t.Name())
	g := group.Ristretto255
	s0, w0 := newDLog(rnd, g)
	s1, w1 := newDLog(rnd, g)
	p := sigma.NewOrProof(dlog.Protocol{}, dlog.Protocol{})
	ci := sigma.CommonInputVector{s0, s1}
	for branch, w := range []dlog.Witness{w0, w1} {
		tr, err := sigma.Run(p, rnd, ci, sigma.OrSecretInput{Branch: branch, Secret: w})
		require.NoError(t, err)
		require.True(t, accepts(t, p, ci, tr), "branch %d", branch)
		roundTrips(t, p, ci, tr)
	}
}

func TestOrProofChallengeSplit(t *testing.T) {
	rnd := testutil.NewReader(t.Name())
	g := group.Ristretto255
	s0, _ := newDLog(rnd, g)
	s1, w1 := newDLog(rnd, g)
	p := sigma.NewOrProof(dlog.Protocol{}, dlog.Protocol{})
	ci := sigma.CommonInputVector{s0, s1}
	space, err := p.ChallengeSpace(ci)
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		tr, err := sigma.Run(p, rnd, ci, sigma.OrSecretInput{Branch: 1, Secret: w1})
		require.NoError(t, err)
		resp := tr.Response().(*sigma.OrResponse)
		c1, err := space.Subtract(tr.Challenge(), resp.Challenge0)
		require.NoError(t, err)
		sum, err := space.Add(resp.Challenge0, c1)
		require.NoError(t, err)
		require.True(t, space.Equal(sum, tr.Challenge()))

		// each branch verifies on its own under its sub-challenge
		anns := tr.Announcement().(sigma.AnnouncementVector)
		require.True(t, accepts(t, dlog.Protocol{}, s0, sigma.NewTranscript(anns[0], resp.Challenge0, resp.Response0)))
		require.True(t, accepts(t, dlog.Protocol{}, s1, sigma.NewTranscript(anns[1], c1, resp.Response1)))
	}
}

func TestOrProofSimulation(t *testing.T) {
	rnd := testutil.NewReader(t.Name())
	g := group.Ristretto255
	s0, _ := newDLog(rnd, g)
	s1, _ := newDLog(rnd, g)
	p := sigma.NewOrProof(dlog.Protocol{}, dlog.Protocol{})
	ci := sigma.CommonInputVector{s0, s1}
	c, err := sigma.GenerateChallenge(p, rnd, ci)
	require.NoError(t, err)
	tr, err := p.SimulateTranscript(rnd, ci, c)
	require.NoError(t, err)
	space, _ := p.ChallengeSpace(ci)
	require.True(t, space.Equal(tr.Challenge(), c))
	require.True(t, accepts(t, p, ci, tr))
	roundTrips(t, p, ci, tr)
}

func TestOrProofNoWitnessFails(t *testing.T) {
	rnd := testutil.NewReader(t.Name())
	g := group.Ristretto255
	s0, _ := newDLog(rnd, g)
	s1, _ := newDLog(rnd, g)
	_, stranger := newDLog(rnd, g)
	p := sigma.NewOrProof(dlog.Protocol{}, dlog.Protocol{})
	ci := sigma.CommonInputVector{s0, s1}
	accepted := 0
	for i := 0; i < 64; i++ {
		tr, err := sigma.Run(p, rnd, ci, sigma.OrSecretInput{Branch: i % 2, Secret: stranger})
		require.NoError(t, err)
		if accepts(t, p, ci, tr) {
			accepted++
		}
	}
	require.Zero(t, accepted)
}

func TestOrProofTamper(t *testing.T) {
	rnd := testutil.NewReader(t.Name())
	g := group.Ristretto255
	s0, w0 := newDLog(rnd, g)
	s1, _ := newDLog(rnd, g)
	p := sigma.NewOrProof(dlog.Protocol{}, dlog.Protocol{})
	ci := sigma.CommonInputVector{s0, s1}
	tr, err := sigma.Run(p, rnd, ci, sigma.OrSecretInput{Branch: 0, Secret: w0})
	require.NoError(t, err)
	anns := tr.Announcement().(sigma.AnnouncementVector)
	resp := tr.Response().(*sigma.OrResponse)

	swapped := sigma.NewTranscript(
		sigma.AnnouncementVector{anns[1], anns[0]},
		tr.Challenge(),
		&sigma.OrResponse{Response0: resp.Response1, Response1: resp.Response0, Challenge0: resp.Challenge0},
	)
	require.False(t, accepts(t, p, ci, swapped))

	other, err := sigma.GenerateChallenge(p, rnd, ci)
	require.NoError(t, err)
	rechallenged := sigma.NewTranscript(tr.Announcement(), other, tr.Response())
	require.False(t, accepts(t, p, ci, rechallenged))
}

func TestOrProofErrors(t *testing.T) {
	rnd := testutil.NewReader(t.Name())
	s0, w0 := newDLog(rnd, group.Ristretto255)
	s1, _ := newDLog(rnd, group.P256)
	p := sigma.NewOrProof(dlog.Protocol{}, dlog.Protocol{})

	_, err := sigma.Run(p, rnd, sigma.CommonInputVector{s0, s1}, sigma.OrSecretInput{Branch: 0, Secret: w0})
	require.True(t, errors.Is(err, sigma.ErrChallengeSpaceMismatch))

	ci := sigma.CommonInputVector{s0, s0}
	_, err = sigma.Run(p, rnd, ci, sigma.OrSecretInput{Branch: 2, Secret: w0})
	require.True(t, errors.Is(err, sigma.ErrMalformed))
	_, err = sigma.Run(p, rnd, ci, w0)
	require.True(t, errors.Is(err, sigma.ErrMalformed))

	tr, err := sigma.Run(p, rnd, ci, sigma.OrSecretInput{Branch: 1, Secret: w0})
	require.NoError(t, err)
	comp, err := p.CompressTranscript(ci, tr)
	require.NoError(t, err)
	other, err := sigma.GenerateChallenge(p, rnd, ci)
	require.NoError(t, err)
	comp.List[0] = other.Repr()
	_, err = p.DecompressTranscript(ci, comp)
	require.True(t, errors.Is(err, sigma.ErrMalformed))
}
