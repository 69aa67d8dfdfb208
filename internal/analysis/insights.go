package analysis

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	msgFailed         = "Не вдалося автоматично згенерувати інсайти для цього файлу."
	msgMissingColumns = "Аналіз неможливий: відсутні стовпці 'Price_Per_Unit' або 'Quantity'."
)

// formatter renders insight strings. Money uses two decimals with comma
// thousands grouping ("1,234.50"); counts are printed ungrouped.
type formatter struct {
	p        *message.Printer
	currency string
}

func newFormatter(currency string) *formatter {
	return &formatter{p: message.NewPrinter(language.English), currency: currency}
}

func (f *formatter) money(v float64) string {
	s := f.p.Sprintf("%.2f", v)
	if f.currency == "" {
		return s
	}
	return s + " " + f.currency
}

func (f *formatter) percent(v float64) string {
	return f.p.Sprintf("%.1f%%", v*100)
}

// imputation returns the cost disclosure for imp, or "" when nothing was filled.
func (f *formatter) imputation(imp Imputation) string {
	switch imp.Tier {
	case TierCategoryMargin:
		return "ℹ️ У файлі немає даних про собівартість. Її оцінено за типовою маржею для кожної категорії товарів, тому прибуток є наближеним."
	case TierFlatMargin:
		return f.p.Sprintf("ℹ️ У файлі немає ні собівартості, ні категорій товарів. Для оцінки прибутку застосовано стандартну маржу %s.", f.percent(imp.Margin))
	case TierAverageMargin:
		return fmt.Sprintf("ℹ️ Собівартість відсутня у %d рядках. Її заповнено за середньою маржею %s, розрахованою з наявних даних.", imp.Filled, f.percent(imp.Margin))
	case TierAverageFallback:
		return fmt.Sprintf("ℹ️ Собівартість відсутня у %d рядках, а наявні дані не дозволяють розрахувати середню маржу. Застосовано стандартну маржу %s.", imp.Filled, f.percent(imp.Margin))
	default:
		return ""
	}
}

// summary renders, in order: totals, AOV, top category, top region, the AOV
// recommendation and the lowest-category recommendation.
func (f *formatter) summary(s *Summary, uplift float64) []string {
	out := []string{
		fmt.Sprintf("✅ Проаналізовано %d унікальних транзакцій на загальну суму %s.", s.Transactions, f.money(s.TotalRevenue)),
	}
	if s.Transactions > 0 {
		out = append(out, f.p.Sprintf("📈 Середній чек (AOV) у цьому наборі даних становить %s.", f.money(s.AOV)))
	}
	if s.TopCategory != nil {
		out = append(out, f.p.Sprintf("🏆 Топ-категорія: '%s' з виручкою %s.", s.TopCategory.Name, f.money(s.TopCategory.Revenue)))
	}
	if s.TopRegion != nil {
		out = append(out, f.p.Sprintf("🌍 Топ-регіон: '%s' з виручкою %s.", s.TopRegion.Name, f.money(s.TopRegion.Revenue)))
	}
	if s.AOV > 0 {
		out = append(out, f.p.Sprintf(
			"💡 **Рекомендація:** Ваш середній чек %s. Спробуйте впровадити поріг безкоштовної доставки (наприклад, від %s) або додайте 'cross-sell' товари, щоб заохотити клієнтів купувати більше.",
			f.money(s.AOV), f.money(s.AOV*uplift)))
	}
	if s.BottomCategory != nil {
		out = append(out, f.p.Sprintf(
			"📉 **Рекомендація:** Категорія '%s' приносить найменше доходу (%s). Розгляньте можливість проведення цільової промо-акції для неї або проаналізуйте її асортимент, щоб підвищити привабливість.",
			s.BottomCategory.Name, f.money(s.BottomCategory.Revenue)))
	}
	return out
}
