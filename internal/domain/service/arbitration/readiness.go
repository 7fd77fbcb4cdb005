package arbitration

import (
	"fmt"

	"github.com/zono819/ratio-arb/internal/domain/entity"
	"github.com/zono819/ratio-arb/internal/domain/service"
)

// Readiness is the result of checking that every side the sizing chain
// reads is present and quoted. Role is set when Status is not ready.
type Readiness struct {
	Status entity.ReadinessStatus
	Role   entity.SideRole
}

// Ready returns true if sizing can read all four sides
func (r Readiness) Ready() bool {
	return r.Status == entity.ReadinessReady
}

func (r Readiness) String() string {
	if r.Ready() {
		return string(r.Status)
	}
	return fmt.Sprintf("%s(%s)", r.Status, r.Role)
}

var ready = Readiness{Status: entity.ReadinessReady}

type sideRequirement struct {
	role      entity.SideRole
	side      func() service.Side
	needsBids bool
}

// Readiness checks the four book sides in chain order and reports the
// first one that is missing or has no quotes where they are needed.
// It never reads prices or sizes.
func (rt *RatioTrade) Readiness() Readiness {
	if rt.sellThenBuy == nil {
		return Readiness{Status: entity.ReadinessMissingSide, Role: entity.RoleOwnedSell}
	}
	if rt.buyThenSell == nil {
		return Readiness{Status: entity.ReadinessMissingSide, Role: entity.RoleArbBuy}
	}

	requirements := []sideRequirement{
		{role: entity.RoleOwnedSell, side: rt.sellThenBuy.Sell, needsBids: true},
		{role: entity.RoleOwnedBuy, side: rt.sellThenBuy.Buy, needsBids: false},
		{role: entity.RoleArbBuy, side: rt.buyThenSell.Sell, needsBids: false},
		{role: entity.RoleArbSell, side: rt.buyThenSell.Buy, needsBids: true},
	}

	for _, req := range requirements {
		side := req.side()
		if side == nil || side.Instrument() == nil {
			return Readiness{Status: entity.ReadinessMissingSide, Role: req.role}
		}
		book := side.Book()
		if book == nil {
			return Readiness{Status: entity.ReadinessMissingSide, Role: req.role}
		}
		quoted := book.HasOffers()
		if req.needsBids {
			quoted = book.HasBids()
		}
		if !quoted {
			return Readiness{Status: entity.ReadinessEmptyBook, Role: req.role}
		}
	}

	return ready
}
