package service

import (
	"context"
	"strings"
	"time"

	"fakturo/internal/invoicing/models"
	partystore "fakturo/internal/invoicing/store/party"
	id "fakturo/pkg/domain"
	dErrors "fakturo/pkg/domain-errors"
	"fakturo/pkg/requestcontext"
)

// CreateParty registers a new party.
func (s *Service) CreateParty(ctx context.Context, legalName string) (*models.Party, error) {
	legalName = strings.TrimSpace(legalName)

	p, err := s.partyFactory.NewParty(legalName, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	if err := s.parties.Create(ctx, p); err != nil {
		return nil, wrapPartyErr(err)
	}

	s.logger.InfoContext(ctx, "party created", "party_id", p.ID(), "legal_name", legalName)
	s.publish(ctx, p.ID().String(), p.DrainDomainEvents())
	return p, nil
}

// GetParty loads one party.
func (s *Service) GetParty(ctx context.Context, partyID id.PartyID) (*models.Party, error) {
	p, err := s.parties.FindByID(ctx, partyID)
	if err != nil {
		return nil, wrapPartyErr(err)
	}
	return p, nil
}

// GetPartyByIdentifier resolves a party through a scheme+value identifier.
func (s *Service) GetPartyByIdentifier(ctx context.Context, scheme, value string) (*models.Party, error) {
	if scheme == "" || value == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "identifier scheme and value are required")
	}
	p, err := s.parties.FindByIdentifier(ctx, scheme, value)
	if err != nil {
		return nil, wrapPartyErr(err)
	}
	return p, nil
}

// ListParties pages through matching parties ordered by legal name.
func (s *Service) ListParties(ctx context.Context, filter partystore.Filter, page partystore.Page) (partystore.ListResult, error) {
	result, err := s.parties.List(ctx, filter, page)
	if err != nil {
		return partystore.ListResult{}, wrapPartyErr(err)
	}
	return result, nil
}

// UpdateParty loads a party, applies the edit through the aggregate's own
// guards, persists, and publishes the drained outbox.
func (s *Service) UpdateParty(ctx context.Context, partyID id.PartyID,
	edit func(p *models.Party, now time.Time) error) (*models.Party, error) {
	p, err := s.parties.FindByID(ctx, partyID)
	if err != nil {
		return nil, wrapPartyErr(err)
	}
	if err := edit(p, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.parties.Update(ctx, p); err != nil {
		return nil, wrapPartyErr(err)
	}
	s.publish(ctx, partyID.String(), p.DrainDomainEvents())
	return p, nil
}

// DeleteParty removes a party from the directory. Invoices keep their
// snapshots, so past documents are unaffected.
func (s *Service) DeleteParty(ctx context.Context, partyID id.PartyID) error {
	if err := s.parties.Delete(ctx, partyID); err != nil {
		return wrapPartyErr(err)
	}
	s.logger.InfoContext(ctx, "party deleted", "party_id", partyID)
	return nil
}

// CheckPartyReadiness reports directory-quality warnings (checksum-suspect
// identifiers) without blocking any operation.
func (s *Service) CheckPartyReadiness(ctx context.Context, partyID id.PartyID) ([]string, error) {
	p, err := s.parties.FindByID(ctx, partyID)
	if err != nil {
		return nil, wrapPartyErr(err)
	}
	warnings, err := p.ValidateIdentifiers()
	if err != nil {
		return nil, err
	}
	return warnings, nil
}
