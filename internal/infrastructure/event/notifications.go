package event

import (
	"context"
	"strings"

	"github.com/erp/salesengine/internal/domain/sales"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/erp/salesengine/internal/infrastructure/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// SaleNotificationHandler turns sale events into human readable operator
// notifications, with amounts formatted for the configured locale
type SaleNotificationHandler struct {
	logger   *zap.Logger
	printer  *message.Printer
	tag      language.Tag
	symbols  numberSymbols
	currency string
}

// NewSaleNotificationHandler creates a handler writing to log. locale is a
// BCP 47 tag such as "en-US" or "de-DE"; an unknown tag falls back to English.
func NewSaleNotificationHandler(log *zap.Logger, locale, currency string) *SaleNotificationHandler {
	if log == nil {
		log = zap.NewNop()
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	printer := message.NewPrinter(tag)
	return &SaleNotificationHandler{
		logger:   log.Named("notifications"),
		printer:  printer,
		tag:      tag,
		symbols:  newNumberSymbols(printer),
		currency: strings.ToUpper(currency),
	}
}

func (h *SaleNotificationHandler) EventTypes() []string {
	return []string{
		sales.EventTypeSaleCreated,
		sales.EventTypeSaleDeleted,
		sales.EventTypeSaleStatusChanged,
		sales.EventTypeStockReconciliationRequired,
	}
}

func (h *SaleNotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	log := logger.Enrich(ctx, h.logger).With(
		zap.String("event_type", event.EventType()),
		zap.String("sale_id", event.AggregateID().String()),
	)

	switch e := event.(type) {
	case *sales.SaleCreatedEvent:
		log.Info(h.printer.Sprintf("Sale %s created with %d item(s), total %s",
			e.SaleNumber, len(e.Items), h.FormatMoney(e.GrandTotal)),
			zap.String("sale_number", e.SaleNumber),
		)
	case *sales.SaleDeletedEvent:
		msg := h.printer.Sprintf("Sale %s deleted", e.SaleNumber)
		if e.StockReleased {
			msg += ", reserved stock returned"
		}
		log.Info(msg, zap.String("sale_number", e.SaleNumber))
	case *sales.SaleStatusChangedEvent:
		log.Info(h.printer.Sprintf("Sale %s moved from %s to %s",
			e.SaleNumber, h.StatusLabel(e.From), h.StatusLabel(e.To)),
			zap.String("sale_number", e.SaleNumber),
		)
	case *sales.StockReconciliationRequiredEvent:
		log.Error(h.printer.Sprintf("Stock needs manual reconciliation after %s: %d movement(s) pending",
			e.Operation, len(e.Pending)),
			zap.Any("pending", e.Pending),
			zap.String("reason", e.Reason),
		)
	}
	return nil
}

// FormatMoney renders amount with two decimals and locale grouping,
// prefixed by the currency code, e.g. "USD 1,234.50". Digits are taken from
// the decimal string so large totals keep every digit.
func (h *SaleNotificationHandler) FormatMoney(amount decimal.Decimal) string {
	formatted := h.symbols.format(amount.StringFixed(sales.MoneyScale))
	if h.currency == "" {
		return formatted
	}
	return h.currency + " " + formatted
}

// StatusLabel renders a status such as ON_HOLD as "On Hold"
func (h *SaleNotificationHandler) StatusLabel(status sales.SaleStatus) string {
	// a Caser keeps state between calls and must not be shared
	return cases.Title(h.tag).String(strings.ReplaceAll(strings.ToLower(string(status)), "_", " "))
}

// numberSymbols holds the digit glyphs and separators of a locale
type numberSymbols struct {
	digits  [10]string
	group   string
	decimal string
}

func newNumberSymbols(p *message.Printer) numberSymbols {
	sym := numberSymbols{group: ",", decimal: "."}
	for i := range sym.digits {
		sym.digits[i] = p.Sprint(number.Decimal(i))
	}

	// 1234567.5 is long enough to be grouped in every locale
	var seps []string
	sample := p.Sprint(number.Decimal(1234567.5, number.Scale(1)))
	var sep strings.Builder
	for len(sample) > 0 {
		if n := sym.digitPrefix(sample); n > 0 {
			if sep.Len() > 0 {
				seps = append(seps, sep.String())
				sep.Reset()
			}
			sample = sample[n:]
			continue
		}
		sep.WriteByte(sample[0])
		sample = sample[1:]
	}
	switch {
	case len(seps) >= 2:
		sym.group, sym.decimal = seps[0], seps[len(seps)-1]
	case len(seps) == 1:
		sym.group, sym.decimal = "", seps[0]
	}
	return sym
}

func (s numberSymbols) digitPrefix(v string) int {
	for _, d := range s.digits {
		if d != "" && strings.HasPrefix(v, d) {
			return len(d)
		}
	}
	return 0
}

// format localizes a plain decimal string such as "-1234.50"
func (s numberSymbols) format(plain string) string {
	var b strings.Builder
	if strings.HasPrefix(plain, "-") {
		b.WriteByte('-')
		plain = plain[1:]
	}
	intPart, frac, _ := strings.Cut(plain, ".")
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(s.group)
		}
		b.WriteString(s.digits[r-'0'])
	}
	if frac != "" {
		b.WriteString(s.decimal)
		for _, r := range frac {
			b.WriteString(s.digits[r-'0'])
		}
	}
	return b.String()
}

var _ shared.EventHandler = (*SaleNotificationHandler)(nil)
