package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/wellnessreal/internal/model"
)

const proposalColumns = `id, token, client_name, client_email, client_phone, service_type, service_label,
	price, duration, description, contract_text, notes, status, viewed_at, signed_at,
	signature_full_name, signature_ip, payment_method, stripe_session_id, stripe_payment_intent_id,
	transfer_marked_at, paid_at, confirmed_at, confirmed_by, version, created_at, updated_at`

func scanProposal(row pgx.Row) (*model.Proposal, error) {
	var (
		p             model.Proposal
		serviceType   string
		status        string
		paymentMethod *string
		confirmedBy   *string
		price         decimal.Decimal
	)

	err := row.Scan(
		&p.ID, &p.Token, &p.ClientName, &p.ClientEmail, &p.ClientPhone, &serviceType, &p.ServiceLabel,
		&price, &p.Duration, &p.Description, &p.ContractText, &p.Notes, &status, &p.ViewedAt, &p.SignedAt,
		&p.SignatureFullName, &p.SignatureIP, &paymentMethod, &p.StripeSessionID, &p.StripePaymentIntentID,
		&p.TransferMarkedAt, &p.PaidAt, &p.ConfirmedAt, &confirmedBy, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ServiceType = model.ServiceType(serviceType)
	p.Status = model.ProposalStatus(status)
	p.Price = price
	if paymentMethod != nil {
		m := model.PaymentMethod(*paymentMethod)
		p.PaymentMethod = &m
	}
	if confirmedBy != nil {
		c := model.ConfirmedBy(*confirmedBy)
		p.ConfirmedBy = &c
	}

	return &p, nil
}

// GetProposalByID возвращает предложение по идентификатору.
func (r *PostgresRepository) GetProposalByID(ctx context.Context, id uuid.UUID) (*model.Proposal, error) {
	return r.getProposal(ctx, "id", id)
}

// GetProposalByToken возвращает предложение по клиентскому токену.
func (r *PostgresRepository) GetProposalByToken(ctx context.Context, token string) (*model.Proposal, error) {
	return r.getProposal(ctx, "token", token)
}

func (r *PostgresRepository) getProposal(ctx context.Context, keyColumn string, key any) (*model.Proposal, error) {
	var p *model.Proposal
	err := r.withRetry(ctx, func(ctx context.Context) error {
		var err error
		p, err = scanProposal(r.pool.QueryRow(ctx,
			`SELECT `+proposalColumns+` FROM proposals WHERE `+keyColumn+` = $1`,
			key,
		))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProposalNotFound
		}
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	return p, nil
}

// CreateProposal сохраняет новое предложение и возвращает сохранённую строку.
func (r *PostgresRepository) CreateProposal(ctx context.Context, p *model.Proposal) (*model.Proposal, error) {
	created, err := scanProposal(r.pool.QueryRow(ctx,
		`INSERT INTO proposals (id, token, client_name, client_email, client_phone, service_type,
			service_label, price, duration, description, contract_text, notes, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING `+proposalColumns,
		p.ID, p.Token, p.ClientName, p.ClientEmail, p.ClientPhone, string(p.ServiceType),
		p.ServiceLabel, p.Price, p.Duration, p.Description, p.ContractText, p.Notes, string(p.Status),
	))
	if err != nil {
		if isPgError(err, pgerrcode.UniqueViolation) {
			return nil, ErrTokenExists
		}
		return nil, fmt.Errorf("create proposal: %w", err)
	}
	return created, nil
}

// UpdateProposalByID применяет частичное изменение к предложению с указанным идентификатором.
func (r *PostgresRepository) UpdateProposalByID(ctx context.Context, id uuid.UUID, patch model.ProposalPatch) (*model.Proposal, error) {
	return r.updateProposal(ctx, "id", id, patch)
}

// UpdateProposalByToken применяет частичное изменение к предложению с указанным токеном.
func (r *PostgresRepository) UpdateProposalByToken(ctx context.Context, token string, patch model.ProposalPatch) (*model.Proposal, error) {
	return r.updateProposal(ctx, "token", token, patch)
}

// updateProposal выполняет изменение одним UPDATE ... RETURNING.
// При заданном IfVersion строка обновляется только если версия совпадает.
func (r *PostgresRepository) updateProposal(ctx context.Context, keyColumn string, key any, patch model.ProposalPatch) (*model.Proposal, error) {
	query, args := buildProposalUpdate(keyColumn, key, patch)

	var p *model.Proposal
	err := r.withWriteRetry(ctx, func(ctx context.Context) error {
		var err error
		p, err = scanProposal(r.pool.QueryRow(ctx, query, args...))
		return err
	})
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update proposal: %w", err)
	}

	var exists bool
	err = r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM proposals WHERE `+keyColumn+` = $1)`,
		key,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check proposal: %w", err)
	}
	if !exists {
		return nil, ErrProposalNotFound
	}
	return nil, ErrVersionConflict
}

func buildProposalUpdate(keyColumn string, key any, patch model.ProposalPatch) (string, []any) {
	s := &setList{args: []any{key}}

	if patch.Status != nil {
		s.add("status", string(*patch.Status))
	}
	if patch.ViewedAt != nil {
		s.add("viewed_at", *patch.ViewedAt)
	}
	if patch.SignedAt != nil {
		s.add("signed_at", *patch.SignedAt)
	}
	if patch.SignatureFullName != nil {
		s.add("signature_full_name", *patch.SignatureFullName)
	}
	if patch.SignatureIP != nil {
		s.add("signature_ip", *patch.SignatureIP)
	}
	if patch.PaymentMethod != nil {
		s.add("payment_method", string(*patch.PaymentMethod))
	}
	if patch.StripeSessionID != nil {
		s.add("stripe_session_id", *patch.StripeSessionID)
	}
	if patch.StripePaymentIntentID != nil {
		s.add("stripe_payment_intent_id", *patch.StripePaymentIntentID)
	}
	if patch.TransferMarkedAt != nil {
		s.add("transfer_marked_at", *patch.TransferMarkedAt)
	}
	if patch.PaidAt != nil {
		s.add("paid_at", *patch.PaidAt)
	}
	if patch.ConfirmedAt != nil {
		s.add("confirmed_at", *patch.ConfirmedAt)
	}
	if patch.ConfirmedBy != nil {
		s.add("confirmed_by", string(*patch.ConfirmedBy))
	}
	if patch.Notes != nil {
		s.add("notes", *patch.Notes)
	}
	s.raw("version = version + 1")
	s.raw("updated_at = now()")

	query := `UPDATE proposals SET ` + strings.Join(s.sets, ", ") + ` WHERE ` + keyColumn + ` = $1`
	if patch.IfVersion != 0 {
		query += ` AND version = ` + s.param(patch.IfVersion)
	}
	query += ` RETURNING ` + proposalColumns

	return query, s.args
}

// ListProposals возвращает все предложения, начиная с самых новых.
func (r *PostgresRepository) ListProposals(ctx context.Context) ([]model.Proposal, error) {
	var res []model.Proposal
	err := r.withRetry(ctx, func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+proposalColumns+` FROM proposals ORDER BY created_at DESC`,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		res = res[:0]
		for rows.Next() {
			p, err := scanProposal(rows)
			if err != nil {
				return fmt.Errorf("scan proposal: %w", err)
			}
			res = append(res, *p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("select proposals: %w", err)
	}
	return res, nil
}

// DeleteProposal удаляет предложение. Используется только администратором вне жизненного цикла.
func (r *PostgresRepository) DeleteProposal(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM proposals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete proposal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProposalNotFound
	}
	return nil
}
