package sigma

// Transcript is one complete run: announcement, challenge, response.
type Transcript struct {
	announcement Announcement
	challenge    Challenge
	response     Response
}

func NewTranscript(a Announcement, c Challenge, r Response) *Transcript {
	return &Transcript{announcement: a, challenge: c, response: r}
}

func (t *Transcript) Announcement() Announcement { return t.announcement }

func (t *Transcript) Challenge() Challenge { return t.challenge }

func (t *Transcript) Response() Response { return t.response }

func (t *Transcript) Repr() Repr {
	return ListRepr(t.announcement.Repr(), t.challenge.Repr(), t.response.Repr())
}
