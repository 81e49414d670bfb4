// Package pricing рассчитывает денежные итоги заказа.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// Policy задаёт налоговую ставку и правила доставки.
type Policy struct {
	TaxRate               decimal.Decimal
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

// DefaultPolicy возвращает политику по умолчанию: 13% налога, доставка 10.00, бесплатно свыше 50.00.
func DefaultPolicy() Policy {
	return Policy{
		TaxRate:               decimal.RequireFromString("0.13"),
		ShippingFee:           decimal.RequireFromString("10.00"),
		FreeShippingThreshold: decimal.RequireFromString("50.00"),
	}
}

// PolicyFromSnapshot восстанавливает политику, зафиксированную в заказе.
func PolicyFromSnapshot(s domain.PricingSnapshot) Policy {
	return Policy{
		TaxRate:               s.TaxRate,
		ShippingFee:           s.ShippingFee,
		FreeShippingThreshold: s.FreeShippingThreshold,
	}
}

// Snapshot возвращает копию политики для сохранения в заказе.
func (p Policy) Snapshot() domain.PricingSnapshot {
	return domain.PricingSnapshot{
		TaxRate:               p.TaxRate,
		ShippingFee:           p.ShippingFee,
		FreeShippingThreshold: p.FreeShippingThreshold,
	}
}

// Validate проверяет, что параметры политики неотрицательны.
func (p Policy) Validate() error {
	if p.TaxRate.IsNegative() {
		return fmt.Errorf("tax rate must be non-negative, got %s", p.TaxRate)
	}
	if p.ShippingFee.IsNegative() {
		return fmt.Errorf("shipping fee must be non-negative, got %s", p.ShippingFee)
	}
	if p.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("free shipping threshold must be non-negative, got %s", p.FreeShippingThreshold)
	}
	return nil
}

// Line вход расчёта: цена единицы и количество.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int32
}

// Totals результат расчёта.
type Totals struct {
	LineTotals    []decimal.Decimal
	Subtotal      decimal.Decimal
	TaxTotal      decimal.Decimal
	ShippingTotal decimal.Decimal
	GrandTotal    decimal.Decimal
}

// Round округляет сумму до копеек по правилу half-up.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(domain.MoneyScale)
}

// LineTotal возвращает unit_price * qty, округлённые до копеек.
func LineTotal(unitPrice decimal.Decimal, quantity int32) decimal.Decimal {
	return Round(unitPrice.Mul(decimal.NewFromInt32(quantity)))
}

// Compute рассчитывает итоги заказа. Функция чистая и детерминированная.
func Compute(policy Policy, lines []Line) Totals {
	totals := Totals{
		LineTotals: make([]decimal.Decimal, len(lines)),
		Subtotal:   decimal.Zero,
	}

	for i, line := range lines {
		lt := LineTotal(line.UnitPrice, line.Quantity)
		totals.LineTotals[i] = lt
		totals.Subtotal = totals.Subtotal.Add(lt)
	}

	totals.TaxTotal = Round(totals.Subtotal.Mul(policy.TaxRate))

	// Доставка бесплатна, только если subtotal строго больше порога.
	if totals.Subtotal.GreaterThan(policy.FreeShippingThreshold) {
		totals.ShippingTotal = decimal.Zero
	} else {
		totals.ShippingTotal = Round(policy.ShippingFee)
	}

	totals.GrandTotal = totals.Subtotal.Add(totals.TaxTotal).Add(totals.ShippingTotal)
	return totals
}

// Apply пересчитывает итоги заказа по его позициям и политике, зафиксированной при создании.
func Apply(order *domain.Order) {
	lines := make([]Line, len(order.Items))
	for i, item := range order.Items {
		lines[i] = Line{UnitPrice: item.UnitPrice, Quantity: item.Quantity}
	}

	totals := Compute(PolicyFromSnapshot(order.Pricing), lines)
	for i := range order.Items {
		order.Items[i].TotalPrice = totals.LineTotals[i]
	}
	order.Subtotal = totals.Subtotal
	order.TaxTotal = totals.TaxTotal
	order.ShippingTotal = totals.ShippingTotal
	order.GrandTotal = totals.GrandTotal
}
