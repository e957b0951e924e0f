package schnorr

import (
	"fmt"
	"io"

	"github.com/cloudflare/circl/group"

	"sigmakit/internal/boolexpr"
	"sigmakit/internal/crypto"
	"sigmakit/internal/sigma"
)

// SendThenDelegateHooks describe a fragment that first commits to a
// send-first value and then delegates to child fragments derived from it.
// SubprotocolSpec must be deterministic in the send-first value: prover and
// verifier each derive the children on their own.
type SendThenDelegateHooks interface {
	// ProverSpec sets the send-first value and the witnesses of every
	// variable SubprotocolSpec will declare. external holds the witnesses
	// of variables owned by enclosing fragments.
	ProverSpec(rnd io.Reader, external *Assignment, b *ProverSpecBuilder) error
	SimulateSendFirstValue(rnd io.Reader) (sigma.SendFirstValue, error)
	RestoreSendFirstValue(r sigma.Repr) (sigma.SendFirstValue, error)
	SubprotocolSpec(sfv sigma.SendFirstValue, b *SubprotocolSpecBuilder) error
	// AdditionalCheck is joined with the child checks.
	AdditionalCheck(sfv sigma.SendFirstValue) (boolexpr.Expr, error)
}

// DelegateAnnouncement is the send-first value followed by the child
// announcements in spec order.
type DelegateAnnouncement struct {
	SendFirstValue sigma.SendFirstValue
	Children       sigma.AnnouncementVector
}

func (a *DelegateAnnouncement) Repr() sigma.Repr {
	return sigma.ListRepr(a.SendFirstValue.Repr(), a.Children.Repr())
}

// DelegateResponse carries z = r + c·w for every owned variable, in
// declaration order, and the child responses in spec order.
type DelegateResponse struct {
	Exponents []group.Scalar
	Elements  []group.Element
	Children  sigma.ResponseVector
}

func (r *DelegateResponse) Repr() sigma.Repr {
	return sigma.ListRepr(r.variablesRepr()...)
}

func (r *DelegateResponse) variablesRepr() []sigma.Repr {
	exps := make([]sigma.Repr, len(r.Exponents))
	for i, s := range r.Exponents {
		exps[i] = sigma.ScalarRepr(s)
	}
	elems := make([]sigma.Repr, len(r.Elements))
	for i, e := range r.Elements {
		elems[i] = sigma.ElementRepr(e)
	}
	return []sigma.Repr{sigma.ListRepr(exps...), sigma.ListRepr(elems...), r.Children.Repr()}
}

type delegateSecret struct {
	sfv        sigma.SendFirstValue
	spec       *SubprotocolSpec
	own        *Assignment
	randomness *Assignment
	children   []sigma.AnnouncementSecret
}

// SendThenDelegateFragment runs its children under one challenge, threading
// a single assignment of its owned variables through all of them. Two
// children that refer to the same variable are thereby proven for the same
// witness.
type SendThenDelegateFragment struct {
	g     group.Group
	hooks SendThenDelegateHooks
}

func NewSendThenDelegateFragment(g group.Group, hooks SendThenDelegateHooks) *SendThenDelegateFragment {
	return &SendThenDelegateFragment{g: g, hooks: hooks}
}

func (f *SendThenDelegateFragment) Group() group.Group { return f.g }

// Spec derives the subprotocol spec for sfv.
func (f *SendThenDelegateFragment) Spec(sfv sigma.SendFirstValue) (*SubprotocolSpec, error) {
	b := newSubprotocolSpecBuilder(f.g)
	if err := f.hooks.SubprotocolSpec(sfv, b); err != nil {
		return nil, err
	}
	return b.build()
}

func (f *SendThenDelegateFragment) challenge(c group.Scalar) error {
	if c == nil || c.Group() != f.g {
		return fmt.Errorf("%w: challenge outside %s", sigma.ErrMalformed, f.g)
	}
	return nil
}

func (f *SendThenDelegateFragment) AnnouncementSecret(rnd io.Reader, witnesses *Assignment) (sigma.AnnouncementSecret, error) {
	pb := newProverSpecBuilder()
	if err := f.hooks.ProverSpec(rnd, witnesses, pb); err != nil {
		return nil, err
	}
	ps, err := pb.build()
	if err != nil {
		return nil, err
	}
	spec, err := f.Spec(ps.sfv)
	if err != nil {
		return nil, err
	}
	own, err := ps.witnesses(spec)
	if err != nil {
		return nil, err
	}
	randomness := NewAssignment()
	for _, v := range spec.exps {
		k, err := crypto.RandomScalar(f.g, rnd)
		if err != nil {
			return nil, err
		}
		randomness.SetExponent(v, k)
	}
	for _, v := range spec.elems {
		k, err := crypto.RandomElement(f.g, rnd)
		if err != nil {
			return nil, err
		}
		randomness.SetElement(v, k)
	}
	scope := own.Over(witnesses)
	children := make([]sigma.AnnouncementSecret, len(spec.fragments))
	for i, child := range spec.fragments {
		if children[i], err = child.AnnouncementSecret(rnd, scope); err != nil {
			return nil, fmt.Errorf("fragment %q: %w", spec.names[i], err)
		}
	}
	return &delegateSecret{sfv: ps.sfv, spec: spec, own: own, randomness: randomness, children: children}, nil
}

func secretOf(as sigma.AnnouncementSecret) (*delegateSecret, error) {
	ds, ok := as.(*delegateSecret)
	if !ok || ds == nil {
		return nil, fmt.Errorf("%w: announcement secret is %T", sigma.ErrMalformed, as)
	}
	return ds, nil
}

func (f *SendThenDelegateFragment) Announcement(witnesses *Assignment, as sigma.AnnouncementSecret, randomness *Assignment) (sigma.Announcement, error) {
	ds, err := secretOf(as)
	if err != nil {
		return nil, err
	}
	scope := ds.own.Over(witnesses)
	rscope := ds.randomness.Over(randomness)
	children := make(sigma.AnnouncementVector, len(ds.spec.fragments))
	for i, child := range ds.spec.fragments {
		if children[i], err = child.Announcement(scope, ds.children[i], rscope); err != nil {
			return nil, fmt.Errorf("fragment %q: %w", ds.spec.names[i], err)
		}
	}
	return &DelegateAnnouncement{SendFirstValue: ds.sfv, Children: children}, nil
}

func (f *SendThenDelegateFragment) Response(witnesses *Assignment, as sigma.AnnouncementSecret, c group.Scalar) (sigma.Response, error) {
	if err := f.challenge(c); err != nil {
		return nil, err
	}
	ds, err := secretOf(as)
	if err != nil {
		return nil, err
	}
	out := &DelegateResponse{
		Exponents: make([]group.Scalar, len(ds.spec.exps)),
		Elements:  make([]group.Element, len(ds.spec.elems)),
		Children:  make(sigma.ResponseVector, len(ds.spec.fragments)),
	}
	for i, v := range ds.spec.exps {
		w, _ := ds.own.Exponent(v)
		r, _ := ds.randomness.Exponent(v)
		z := f.g.NewScalar().Mul(w, c)
		out.Exponents[i] = z.Add(z, r)
	}
	for i, v := range ds.spec.elems {
		w, _ := ds.own.Element(v)
		r, _ := ds.randomness.Element(v)
		z := f.g.NewElement().Mul(w, c)
		out.Elements[i] = z.Add(z, r)
	}
	scope := ds.own.Over(witnesses)
	for i, child := range ds.spec.fragments {
		if out.Children[i], err = child.Response(scope, ds.children[i], c); err != nil {
			return nil, fmt.Errorf("fragment %q: %w", ds.spec.names[i], err)
		}
	}
	return out, nil
}

func (f *SendThenDelegateFragment) announcementOf(a sigma.Announcement) (*DelegateAnnouncement, *SubprotocolSpec, error) {
	da, ok := a.(*DelegateAnnouncement)
	if !ok || da == nil || da.SendFirstValue == nil {
		return nil, nil, fmt.Errorf("%w: delegate announcement is %T", sigma.ErrMalformed, a)
	}
	spec, err := f.Spec(da.SendFirstValue)
	if err != nil {
		return nil, nil, err
	}
	if len(da.Children) != len(spec.fragments) {
		return nil, nil, fmt.Errorf("%w: %d child announcements for %d fragments", sigma.ErrMalformed, len(da.Children), len(spec.fragments))
	}
	return da, spec, nil
}

// bind checks the shape of the variable responses against spec and returns
// them as an assignment.
func (f *SendThenDelegateFragment) bind(spec *SubprotocolSpec, exps []group.Scalar, elems []group.Element) (*Assignment, error) {
	if len(exps) != len(spec.exps) || len(elems) != len(spec.elems) {
		return nil, fmt.Errorf("%w: variable responses do not match the subprotocol variables", sigma.ErrMalformed)
	}
	out := NewAssignment()
	for i, v := range spec.exps {
		if exps[i] == nil || exps[i].Group() != f.g {
			return nil, fmt.Errorf("%w: response for %q", sigma.ErrMalformed, v.name)
		}
		out.SetExponent(v, exps[i])
	}
	for i, v := range spec.elems {
		if elems[i] == nil || elems[i].Group() != f.g {
			return nil, fmt.Errorf("%w: response for %q", sigma.ErrMalformed, v.name)
		}
		out.SetElement(v, elems[i])
	}
	return out, nil
}

func (f *SendThenDelegateFragment) CheckExpr(a sigma.Announcement, c group.Scalar, r sigma.Response, responses *Assignment) (boolexpr.Expr, error) {
	if err := f.challenge(c); err != nil {
		return nil, err
	}
	da, spec, err := f.announcementOf(a)
	if err != nil {
		return nil, err
	}
	dr, ok := r.(*DelegateResponse)
	if !ok || dr == nil {
		return nil, fmt.Errorf("%w: delegate response is %T", sigma.ErrMalformed, r)
	}
	if len(dr.Children) != len(spec.fragments) {
		return nil, fmt.Errorf("%w: %d child responses for %d fragments", sigma.ErrMalformed, len(dr.Children), len(spec.fragments))
	}
	own, err := f.bind(spec, dr.Exponents, dr.Elements)
	if err != nil {
		return nil, err
	}
	scope := own.Over(responses)
	checks := make([]boolexpr.Expr, 0, len(spec.fragments)+1)
	extra, err := f.hooks.AdditionalCheck(da.SendFirstValue)
	if err != nil {
		return nil, err
	}
	checks = append(checks, extra)
	for i, child := range spec.fragments {
		e, err := child.CheckExpr(da.Children[i], c, dr.Children[i], scope)
		if err != nil {
			return nil, fmt.Errorf("fragment %q: %w", spec.names[i], err)
		}
		checks = append(checks, e)
	}
	return boolexpr.And(checks...), nil
}

// Simulate draws a send-first value and uniform responses for the owned
// variables, then lets every child solve for its announcement.
func (f *SendThenDelegateFragment) Simulate(rnd io.Reader, c group.Scalar, responses *Assignment) (sigma.Announcement, sigma.Response, error) {
	if err := f.challenge(c); err != nil {
		return nil, nil, err
	}
	sfv, err := f.hooks.SimulateSendFirstValue(rnd)
	if err != nil {
		return nil, nil, err
	}
	spec, err := f.Spec(sfv)
	if err != nil {
		return nil, nil, err
	}
	dr := &DelegateResponse{
		Exponents: make([]group.Scalar, len(spec.exps)),
		Elements:  make([]group.Element, len(spec.elems)),
		Children:  make(sigma.ResponseVector, len(spec.fragments)),
	}
	for i := range spec.exps {
		if dr.Exponents[i], err = crypto.RandomScalar(f.g, rnd); err != nil {
			return nil, nil, err
		}
	}
	for i := range spec.elems {
		if dr.Elements[i], err = crypto.RandomElement(f.g, rnd); err != nil {
			return nil, nil, err
		}
	}
	own, err := f.bind(spec, dr.Exponents, dr.Elements)
	if err != nil {
		return nil, nil, err
	}
	scope := own.Over(responses)
	da := &DelegateAnnouncement{SendFirstValue: sfv, Children: make(sigma.AnnouncementVector, len(spec.fragments))}
	for i, child := range spec.fragments {
		if da.Children[i], dr.Children[i], err = child.Simulate(rnd, c, scope); err != nil {
			return nil, nil, fmt.Errorf("fragment %q: %w", spec.names[i], err)
		}
	}
	return da, dr, nil
}

func (f *SendThenDelegateFragment) RestoreAnnouncement(r sigma.Repr) (sigma.Announcement, error) {
	items, err := r.Items(2)
	if err != nil {
		return nil, err
	}
	sfv, err := f.hooks.RestoreSendFirstValue(items[0])
	if err != nil {
		return nil, err
	}
	spec, err := f.Spec(sfv)
	if err != nil {
		return nil, err
	}
	reprs, err := items[1].Items(len(spec.fragments))
	if err != nil {
		return nil, err
	}
	da := &DelegateAnnouncement{SendFirstValue: sfv, Children: make(sigma.AnnouncementVector, len(spec.fragments))}
	for i, child := range spec.fragments {
		if da.Children[i], err = child.RestoreAnnouncement(reprs[i]); err != nil {
			return nil, fmt.Errorf("fragment %q: %w", spec.names[i], err)
		}
	}
	return da, nil
}

func (f *SendThenDelegateFragment) restoreVariables(spec *SubprotocolSpec, expsRepr, elemsRepr sigma.Repr) ([]group.Scalar, []group.Element, error) {
	er, err := expsRepr.Items(len(spec.exps))
	if err != nil {
		return nil, nil, err
	}
	gr, err := elemsRepr.Items(len(spec.elems))
	if err != nil {
		return nil, nil, err
	}
	exps := make([]group.Scalar, len(er))
	for i := range er {
		if exps[i], err = sigma.RestoreScalar(f.g, er[i]); err != nil {
			return nil, nil, err
		}
	}
	elems := make([]group.Element, len(gr))
	for i := range gr {
		if elems[i], err = sigma.RestoreElement(f.g, gr[i]); err != nil {
			return nil, nil, err
		}
	}
	return exps, elems, nil
}

func (f *SendThenDelegateFragment) RestoreResponse(a sigma.Announcement, c group.Scalar, r sigma.Repr) (sigma.Response, error) {
	da, spec, err := f.announcementOf(a)
	if err != nil {
		return nil, err
	}
	items, err := r.Items(3)
	if err != nil {
		return nil, err
	}
	exps, elems, err := f.restoreVariables(spec, items[0], items[1])
	if err != nil {
		return nil, err
	}
	reprs, err := items[2].Items(len(spec.fragments))
	if err != nil {
		return nil, err
	}
	dr := &DelegateResponse{Exponents: exps, Elements: elems, Children: make(sigma.ResponseVector, len(spec.fragments))}
	for i, child := range spec.fragments {
		if dr.Children[i], err = child.RestoreResponse(da.Children[i], c, reprs[i]); err != nil {
			return nil, fmt.Errorf("fragment %q: %w", spec.names[i], err)
		}
	}
	return dr, nil
}

// CompressTranscript keeps the send-first value and the variable responses;
// each child compresses its own part against them.
func (f *SendThenDelegateFragment) CompressTranscript(a sigma.Announcement, c group.Scalar, r sigma.Response, responses *Assignment) (sigma.Repr, error) {
	da, spec, err := f.announcementOf(a)
	if err != nil {
		return sigma.Repr{}, err
	}
	dr, ok := r.(*DelegateResponse)
	if !ok || dr == nil || len(dr.Children) != len(spec.fragments) {
		return sigma.Repr{}, fmt.Errorf("%w: delegate response is %T", sigma.ErrMalformed, r)
	}
	own, err := f.bind(spec, dr.Exponents, dr.Elements)
	if err != nil {
		return sigma.Repr{}, err
	}
	scope := own.Over(responses)
	children := make([]sigma.Repr, len(spec.fragments))
	for i, child := range spec.fragments {
		if children[i], err = child.CompressTranscript(da.Children[i], c, dr.Children[i], scope); err != nil {
			return sigma.Repr{}, fmt.Errorf("fragment %q: %w", spec.names[i], err)
		}
	}
	vars := dr.variablesRepr()
	return sigma.ListRepr(da.SendFirstValue.Repr(), vars[0], vars[1], sigma.ListRepr(children...)), nil
}

func (f *SendThenDelegateFragment) DecompressTranscript(r sigma.Repr, c group.Scalar, responses *Assignment) (sigma.Announcement, sigma.Response, error) {
	if err := f.challenge(c); err != nil {
		return nil, nil, err
	}
	items, err := r.Items(4)
	if err != nil {
		return nil, nil, err
	}
	sfv, err := f.hooks.RestoreSendFirstValue(items[0])
	if err != nil {
		return nil, nil, err
	}
	spec, err := f.Spec(sfv)
	if err != nil {
		return nil, nil, err
	}
	exps, elems, err := f.restoreVariables(spec, items[1], items[2])
	if err != nil {
		return nil, nil, err
	}
	reprs, err := items[3].Items(len(spec.fragments))
	if err != nil {
		return nil, nil, err
	}
	own, err := f.bind(spec, exps, elems)
	if err != nil {
		return nil, nil, err
	}
	scope := own.Over(responses)
	da := &DelegateAnnouncement{SendFirstValue: sfv, Children: make(sigma.AnnouncementVector, len(spec.fragments))}
	dr := &DelegateResponse{Exponents: exps, Elements: elems, Children: make(sigma.ResponseVector, len(spec.fragments))}
	for i, child := range spec.fragments {
		if da.Children[i], dr.Children[i], err = child.DecompressTranscript(reprs[i], c, scope); err != nil {
			return nil, nil, fmt.Errorf("fragment %q: %w", spec.names[i], err)
		}
	}
	return da, dr, nil
}

// DelegateHooks describe a fragment that only sets up shared variables for
// its children.
type DelegateHooks interface {
	ProverSpec(external *Assignment, b *ProverSpecBuilder) error
	SubprotocolSpec(b *SubprotocolSpecBuilder) error
}

// DelegateFragment is a SendThenDelegateFragment with an empty send-first
// value and no additional check.
type DelegateFragment struct {
	*SendThenDelegateFragment
}

func NewDelegateFragment(g group.Group, hooks DelegateHooks) *DelegateFragment {
	return &DelegateFragment{NewSendThenDelegateFragment(g, delegateHooks{h: hooks})}
}

type delegateHooks struct {
	h DelegateHooks
}

func (d delegateHooks) ProverSpec(_ io.Reader, external *Assignment, b *ProverSpecBuilder) error {
	b.SetSendFirstValue(sigma.EmptySendFirstValue{})
	return d.h.ProverSpec(external, b)
}

func (d delegateHooks) SimulateSendFirstValue(io.Reader) (sigma.SendFirstValue, error) {
	return sigma.EmptySendFirstValue{}, nil
}

func (d delegateHooks) RestoreSendFirstValue(r sigma.Repr) (sigma.SendFirstValue, error) {
	return RestoreEmptySendFirstValue(r)
}

func (d delegateHooks) SubprotocolSpec(_ sigma.SendFirstValue, b *SubprotocolSpecBuilder) error {
	return d.h.SubprotocolSpec(b)
}

func (d delegateHooks) AdditionalCheck(sigma.SendFirstValue) (boolexpr.Expr, error) {
	return boolexpr.True(), nil
}

func RestoreEmptySendFirstValue(r sigma.Repr) (sigma.SendFirstValue, error) {
	if len(r.Bytes) != 0 || len(r.List) != 0 {
		return nil, fmt.Errorf("%w: expected an empty send-first value", sigma.ErrMalformed)
	}
	return sigma.EmptySendFirstValue{}, nil
}
