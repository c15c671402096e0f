package loan

import "context"

// Repository は貸付永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, loan *Loan) (*Loan, error)
	CreateInstallments(ctx context.Context, installments []Installment) error
	FindByID(ctx context.Context, companyID, id string) (*Loan, error)
	ListInstallments(ctx context.Context, loanID string) ([]Installment, error)
}
