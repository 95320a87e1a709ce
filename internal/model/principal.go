package model

import "strconv"

type PrincipalKind string

const (
	KindCitizen  PrincipalKind = "citizen"
	KindOfficial PrincipalKind = "official"
)

func (k PrincipalKind) Valid() bool {
	return k == KindCitizen || k == KindOfficial
}

// Principal is the authenticated subject of a session. For citizens ID is the
// account id in decimal form; for officials it is the official's login id.
type Principal struct {
	ID   string
	Kind PrincipalKind
}

func CitizenPrincipal(accountID int64) *Principal {
	return &Principal{ID: strconv.FormatInt(accountID, 10), Kind: KindCitizen}
}

func OfficialPrincipal(id string) *Principal {
	return &Principal{ID: id, Kind: KindOfficial}
}

func (p *Principal) IsCitizen() bool {
	return p != nil && p.Kind == KindCitizen
}

func (p *Principal) IsOfficial() bool {
	return p != nil && p.Kind == KindOfficial
}

// AccountID parses the citizen account id. ok is false for officials.
func (p *Principal) AccountID() (int64, bool) {
	if !p.IsCitizen() {
		return 0, false
	}
	id, err := strconv.ParseInt(p.ID, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
