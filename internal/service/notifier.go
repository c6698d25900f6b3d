package service

import "github.com/shopspring/decimal"

// Notifier receives operational events worth a human's attention.
// telegram.OpsLogger is the production implementation.
type Notifier interface {
	LogError(err error, context string)
	LogRegistration(username string)
	LogPayment(username string, amount decimal.Decimal, currency string)
	LogVideoManifested(username, starID string)
}

type NopNotifier struct{}

func (NopNotifier) LogError(error, string) {}
func (NopNotifier) LogRegistration(string) {}
func (NopNotifier) LogPayment(string, decimal.Decimal, string) {}
func (NopNotifier) LogVideoManifested(string, string) {}
