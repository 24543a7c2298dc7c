package tool

import (
	"context"
	"strings"

	contractx "github.com/laserhenk/henk-agent/agent/contract"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

// MarkFavorite marks one of the previously shown fabrics as the customer's
// pick. Only fabrics the customer has actually seen are eligible, a bare
// catalog code from thin air is rejected.
type MarkFavorite struct{}

func NewMarkFavorite() *MarkFavorite { return &MarkFavorite{} }

func (t *MarkFavorite) Name() string { return contractx.ToolMarkFavorite }

func (t *MarkFavorite) Run(_ context.Context, params map[string]any, session *statex.SessionState) (contractx.ToolOutput, error) {
	code := stringParam(params, "fabric_code", "code", "query")
	if code == "" {
		code = session.DesignPreferences.RequestedFabricCode
	}
	if code == "" {
		return contractx.ToolOutput{Text: "Welchen Stoff möchtest du als Favoriten markieren?"}, nil
	}

	fabric, ok := session.Fabric.ShownByCode(code)
	if !ok {
		fabric, ok = fromRAGContext(session, code)
	}
	if !ok {
		return contractx.ToolOutput{Text: "Ich habe diesen Stoff leider nicht gefunden."}, nil
	}

	session.Fabric.Favorite = &fabric
	session.DesignPreferences.RequestedFabricCode = ""
	return contractx.ToolOutput{
		Text: "Alles klar, Stoff " + fabric.Code + " ist jetzt dein Favorit.",
		Metadata: map[string]any{
			"favorite_fabric": map[string]any{
				"fabric_code": fabric.Code,
				"name":        fabric.Name,
			},
		},
	}, nil
}

func fromRAGContext(session *statex.SessionState, code string) (statex.Fabric, bool) {
	for _, f := range session.Fabric.RAGContext {
		if strings.EqualFold(f.Code, code) {
			return f, true
		}
	}
	return statex.Fabric{}, false
}
