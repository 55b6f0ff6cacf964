package election

// Election is the contest a tally sheet reports for, with its ballot.
type Election struct {
	ID       string  `json:"electionId"`
	Name     string  `json:"electionName"`
	ParentID string  `json:"parentElectionId,omitempty"`
	Parties  []Party `json:"parties"`
}

// Party groups candidates under a ballot symbol.
type Party struct {
	Name       string      `json:"partyName"`
	Symbol     string      `json:"partySymbol"`
	Candidates []Candidate `json:"candidates"`
}

// Candidate is a single name on the ballot.
type Candidate struct {
	ID   int64  `json:"candidateId"`
	Name string `json:"candidateName"`
}

// Candidates returns every candidate in ballot order.
func (e *Election) Candidates() []Candidate {
	if e == nil {
		return nil
	}
	var out []Candidate
	for _, party := range e.Parties {
		out = append(out, party.Candidates...)
	}
	return out
}

// PartyOf returns the party a candidate stands for.
func (e *Election) PartyOf(candidateID int64) (Party, bool) {
	if e == nil {
		return Party{}, false
	}
	for _, party := range e.Parties {
		for _, c := range party.Candidates {
			if c.ID == candidateID {
				return party, true
			}
		}
	}
	return Party{}, false
}
