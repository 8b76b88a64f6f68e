package offline

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"financas/internal/ai"
	"financas/internal/core"
)

var (
	isoDateRe = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	brDateRe  = regexp.MustCompile(`\b(\d{2})/(\d{2})(?:/(\d{4}))?\b`)
	amountRe  = regexp.MustCompile(`([+-])?\s*(?:R\$\s*)?(\d{1,3}(?:\.\d{3})+,\d{2}|\d+,\d{2}|\d+\.\d{2})\b`)
	parcelRe  = regexp.MustCompile(`(?i)\b(?:parc(?:ela)?\.?\s*)?(\d{1,2})\s*(?:/|de)\s*(\d{1,2})\b`)
	timesRe   = regexp.MustCompile(`(?i)\b(\d{1,2})x\b`)
)

var banks = []string{"Nubank", "Itaú", "Inter", "Bradesco", "Santander", "Caixa", "Banco do Brasil", "C6 Bank", "PicPay", "Mercado Pago"}

var incomeWords = []string{"salário", "salario", "recebido", "recebida", "crédito em conta", "reembolso", "rendimento", "estorno"}

var categoryWords = map[string][]string{
	"Mercado":     {"mercado", "supermercado", "atacad", "hortifruti"},
	"Transporte":  {"uber", "99pop", "posto", "combustível", "estacionamento", "metrô"},
	"Alimentação": {"ifood", "restaurante", "lanchonete", "padaria", "café"},
	"Moradia":     {"aluguel", "condomínio", "energia", "luz", "água", "internet"},
	"Saúde":       {"farmácia", "drogaria", "hospital", "clínica", "unimed"},
	"Lazer":       {"netflix", "spotify", "cinema", "ingresso", "bar"},
	"Educação":    {"curso", "escola", "faculdade", "livraria"},
	"Receita":     incomeWords,
}

// parseStatement extracts one item per line holding a date and an amount.
// Lines without both are headers, balances or marketing text and are skipped.
func parseStatement(text string, now time.Time) ai.Extraction {
	out := ai.Extraction{Items: []ai.ExtractedItem{}}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(strings.ReplaceAll(raw, ";", " "))
		if line == "" {
			continue
		}
		if out.BankName == "" {
			out.BankName = detectBank(line)
		}
		if item, ok := parseLine(line, now); ok {
			out.Items = append(out.Items, item)
		}
	}
	return out
}

func detectBank(line string) string {
	lower := strings.ToLower(line)
	for _, b := range banks {
		if strings.Contains(lower, strings.ToLower(b)) {
			return b
		}
	}
	return ""
}

func parseLine(line string, now time.Time) (ai.ExtractedItem, bool) {
	lower := strings.ToLower(line)
	if strings.Contains(lower, "saldo") || strings.Contains(lower, "total") {
		return ai.ExtractedItem{}, false
	}

	date, rest := takeDate(line, now)
	if date == "" {
		return ai.ExtractedItem{}, false
	}

	m := amountRe.FindStringSubmatchIndex(rest)
	if m == nil {
		return ai.ExtractedItem{}, false
	}
	sign := ""
	if m[2] >= 0 {
		sign = rest[m[2]:m[3]]
	}
	amount, err := core.ParseAmount(rest[m[4]:m[5]])
	if err != nil {
		return ai.ExtractedItem{}, false
	}
	rest = rest[:m[0]] + rest[m[1]:]

	inst, rest := takeInstallments(rest)

	item := ai.ExtractedItem{
		Description:  cleanDescription(rest),
		Amount:       amount,
		Date:         date,
		Type:         string(core.Expense),
		Installments: inst,
	}
	if sign == "+" || containsAny(lower, incomeWords) {
		item.Type = string(core.Income)
	}
	item.Category = guessCategory(lower)
	return item, true
}

func takeDate(line string, now time.Time) (string, string) {
	if m := isoDateRe.FindStringIndex(line); m != nil {
		iso := line[m[0]:m[1]]
		if core.IsISODate(iso) {
			return iso, line[:m[0]] + line[m[1]:]
		}
	}
	m := brDateRe.FindStringSubmatchIndex(line)
	if m == nil {
		return "", line
	}
	day, month := line[m[2]:m[3]], line[m[4]:m[5]]
	year := strconv.Itoa(now.Year())
	if m[6] >= 0 {
		year = line[m[6]:m[7]]
	}
	iso := year + "-" + month + "-" + day
	if !core.IsISODate(iso) {
		return "", line
	}
	return iso, line[:m[0]] + line[m[1]:]
}

func takeInstallments(s string) (*core.Installments, string) {
	if m := parcelRe.FindStringSubmatchIndex(s); m != nil {
		current, _ := strconv.Atoi(s[m[2]:m[3]])
		total, _ := strconv.Atoi(s[m[4]:m[5]])
		if total > 1 && current >= 1 && current <= total {
			return &core.Installments{Current: current, Total: total}, s[:m[0]] + s[m[1]:]
		}
	}
	if m := timesRe.FindStringSubmatchIndex(s); m != nil {
		total, _ := strconv.Atoi(s[m[2]:m[3]])
		if total > 1 {
			return &core.Installments{Current: 1, Total: total}, s[:m[0]] + s[m[1]:]
		}
	}
	return nil, s
}

func cleanDescription(s string) string {
	s = strings.Trim(strings.Join(strings.Fields(s), " "), " -|,")
	if len([]rune(s)) > 64 {
		s = string([]rune(s)[:64])
	}
	return s
}

func guessCategory(lower string) string {
	// fixed order keeps the result deterministic across map iteration
	for _, name := range []string{"Receita", "Mercado", "Alimentação", "Transporte", "Moradia", "Saúde", "Lazer", "Educação"} {
		if containsAny(lower, categoryWords[name]) {
			return name
		}
	}
	return ""
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
