package runtime

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hrdesk-ai/hrdesk/config"
	"github.com/hrdesk-ai/hrdesk/internal/capability"
	"github.com/hrdesk-ai/hrdesk/internal/store"
)

// EnsureCapabilityRegistry seeds default ToolCards when the registry table is
// empty and returns a validated registry.
func EnsureCapabilityRegistry(ctx context.Context, st *store.Store, cfg *config.Config) (*capability.Registry, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	secret := cfg.Capability.SigningSecret
	if secret == "" {
		return nil, errors.New("capability.signing_secret not configured")
	}
	cards, err := st.ListToolCards(ctx)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		if err := seedDefaultToolCards(ctx, st, secret); err != nil {
			return nil, err
		}
		cards, err = st.ListToolCards(ctx)
		if err != nil {
			return nil, err
		}
	}
	toolCards, err := ToolCardsFromRecords(cards)
	if err != nil {
		return nil, err
	}
	return capability.NewRegistry(toolCards, secret, cfg.Capability.RequiredTools)
}

func seedDefaultToolCards(ctx context.Context, st *store.Store, signingSecret string) error {
	for _, tc := range capability.DefaultToolCards() {
		checksum, err := capability.ComputeChecksum(tc)
		if err != nil {
			return err
		}
		tc.Checksum = checksum
		sig, err := capability.SignToolCard(tc, signingSecret)
		if err != nil {
			return err
		}
		tc.Signature = sig
		rec, err := ToolCardRecordFromToolCard(tc)
		if err != nil {
			return err
		}
		if err := st.UpsertToolCard(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// ToolCardsFromRecords converts store records to ToolCards.
func ToolCardsFromRecords(records []store.ToolCardRecord) ([]capability.ToolCard, error) {
	out := make([]capability.ToolCard, 0, len(records))
	for _, rec := range records {
		tc, err := ToolCardFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, nil
}

// ToolCardFromRecord converts a store record to a ToolCard.
func ToolCardFromRecord(rec store.ToolCardRecord) (capability.ToolCard, error) {
	var input map[string]interface{}
	var output map[string]interface{}
	var side []string
	if len(rec.InputSchema) > 0 {
		if err := json.Unmarshal(rec.InputSchema, &input); err != nil {
			return capability.ToolCard{}, err
		}
	}
	if len(rec.OutputSchema) > 0 {
		if err := json.Unmarshal(rec.OutputSchema, &output); err != nil {
			return capability.ToolCard{}, err
		}
	}
	if len(rec.SideEffects) > 0 {
		if err := json.Unmarshal(rec.SideEffects, &side); err != nil {
			return capability.ToolCard{}, err
		}
	}
	return capability.ToolCard{
		Name:         rec.Name,
		Version:      rec.Version,
		Description:  rec.Description,
		InputSchema:  input,
		OutputSchema: output,
		CostEstimate: rec.CostEstimate,
		SideEffects:  side,
		Checksum:     rec.Checksum,
		Signature:    rec.Signature,
	}, nil
}

// ToolCardRecordFromToolCard converts a ToolCard to its store record.
func ToolCardRecordFromToolCard(tc capability.ToolCard) (store.ToolCardRecord, error) {
	inputBytes, err := json.Marshal(tc.InputSchema)
	if err != nil {
		return store.ToolCardRecord{}, err
	}
	outputBytes, err := json.Marshal(tc.OutputSchema)
	if err != nil {
		return store.ToolCardRecord{}, err
	}
	sideBytes, err := json.Marshal(tc.SideEffects)
	if err != nil {
		return store.ToolCardRecord{}, err
	}
	return store.ToolCardRecord{
		Name:         tc.Name,
		Version:      tc.Version,
		Description:  tc.Description,
		InputSchema:  inputBytes,
		OutputSchema: outputBytes,
		CostEstimate: tc.CostEstimate,
		SideEffects:  sideBytes,
		Checksum:     tc.Checksum,
		Signature:    tc.Signature,
	}, nil
}
