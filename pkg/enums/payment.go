package enums

import "fmt"

// PaymentPlan describes how a sale is financed.
type PaymentPlan string

const (
	PaymentPlanCash     PaymentPlan = "cash"
	PaymentPlanFinanced PaymentPlan = "financed"
	PaymentPlanMixed    PaymentPlan = "mixed"
)

var validPaymentPlans = []PaymentPlan{
	PaymentPlanCash,
	PaymentPlanFinanced,
	PaymentPlanMixed,
}

func (p PaymentPlan) String() string {
	return string(p)
}

func (p PaymentPlan) IsValid() bool {
	for _, candidate := range validPaymentPlans {
		if candidate == p {
			return true
		}
	}
	return false
}

func ParsePaymentPlan(value string) (PaymentPlan, error) {
	for _, candidate := range validPaymentPlans {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment plan %q", value)
}

// PaymentMethod identifies how money changed hands.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodDeposit  PaymentMethod = "deposit"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodCheck    PaymentMethod = "check"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCash,
	PaymentMethodTransfer,
	PaymentMethodDeposit,
	PaymentMethodCard,
	PaymentMethodCheck,
}

func (m PaymentMethod) String() string {
	return string(m)
}

func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
