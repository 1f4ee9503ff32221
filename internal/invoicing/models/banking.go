package models

import (
	"regexp"
	"strings"
	"time"

	"fakturo/internal/money"
	dErrors "fakturo/pkg/domain-errors"
)

var (
	ibanPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}$`)
	bicPattern  = regexp.MustCompile(`^[A-Z]{6}[A-Z0-9]{2}([A-Z0-9]{3})?$`)
)

// BankAccount is a payment destination. Either an IBAN or a plain account
// number must be present; IBANs are checksum-verified and BICs format-checked.
type BankAccount struct {
	HolderName    string
	IBAN          string
	AccountNumber string
	BIC           string
}

// NewBankAccount validates and constructs a bank account.
func NewBankAccount(holderName, iban, accountNumber, bic string) (BankAccount, error) {
	iban = strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
	if iban == "" && accountNumber == "" {
		return BankAccount{}, dErrors.New(dErrors.CodeInvariantViolation,
			"bank account requires an IBAN or account number")
	}
	if iban != "" {
		if !ibanPattern.MatchString(iban) {
			return BankAccount{}, dErrors.Newf(dErrors.CodeInvariantViolation, "IBAN %q has invalid format", iban)
		}
		if !validIBANChecksum(iban) {
			return BankAccount{}, dErrors.Newf(dErrors.CodeInvariantViolation, "IBAN %q fails checksum", iban)
		}
	}
	if bic != "" && !bicPattern.MatchString(bic) {
		return BankAccount{}, dErrors.Newf(dErrors.CodeInvariantViolation, "BIC %q has invalid format", bic)
	}
	return BankAccount{HolderName: holderName, IBAN: iban, AccountNumber: accountNumber, BIC: bic}, nil
}

// Key returns the identifier accounts are deduplicated on: the IBAN when
// present, otherwise the plain account number.
func (b BankAccount) Key() string {
	if b.IBAN != "" {
		return b.IBAN
	}
	return b.AccountNumber
}

// validIBANChecksum runs the ISO 13616 mod-97 check: move the first four
// characters to the end, expand letters to two digits, remainder must be 1.
func validIBANChecksum(iban string) bool {
	rearranged := iban[4:] + iban[:4]
	rem := 0
	for _, r := range rearranged {
		switch {
		case r >= '0' && r <= '9':
			rem = (rem*10 + int(r-'0')) % 97
		case r >= 'A' && r <= 'Z':
			v := int(r-'A') + 10
			rem = (rem*100 + v) % 97
		default:
			return false
		}
	}
	return rem == 1
}

// PaymentMethod is the UNCL 4461-style means of payment.
type PaymentMethod string

const (
	PaymentMethodCreditTransfer PaymentMethod = "credit_transfer"
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodDirectDebit    PaymentMethod = "direct_debit"
	PaymentMethodCash           PaymentMethod = "cash"
	PaymentMethodStandingOrder  PaymentMethod = "standing_order"
)

// Payment is a received payment against an invoice.
//
// Invariants:
//   - amount strictly positive
//   - payment date not in the future relative to the provided clock
type Payment struct {
	amount    money.Money
	date      time.Time
	method    PaymentMethod
	reference string
}

// NewPayment validates and constructs a payment. The caller supplies the
// current time so the date bound is testable.
func NewPayment(amount money.Money, date, now time.Time, method PaymentMethod, reference string) (Payment, error) {
	if !amount.IsPositive() {
		return Payment{}, dErrors.Newf(dErrors.CodeInvariantViolation, "payment amount %s must be positive", amount)
	}
	if date.After(now) {
		return Payment{}, dErrors.Newf(dErrors.CodeInvariantViolation, "payment date %s is in the future", date.Format(time.RFC3339))
	}
	return Payment{amount: amount, date: date, method: method, reference: reference}, nil
}

// Amount returns the paid amount.
func (p Payment) Amount() money.Money { return p.amount }

// Date returns the value date of the payment.
func (p Payment) Date() time.Time { return p.date }

// Method returns the means of payment.
func (p Payment) Method() PaymentMethod { return p.method }

// Reference returns the remittance reference, if any.
func (p Payment) Reference() string { return p.reference }
