// internal/rules/messages.go
package rules

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

/*
 * Default failure messages.
 *
 * Keys are the English format strings and double as the English entries.
 * Brazilian Portuguese entries carry the wording of the product this engine
 * replaces. All arguments are pre-stringified (%s) so the printer
 * never applies locale number formatting to field values.
 */

const (
	msgNotArray     = "The value of '%s' is not an array"
	msgNotDate      = "The value of '%s' is not a valid date"
	msgWrongType    = "The value of '%s' does not match the required data type"
	msgNotInList    = "The value '%s' in '%s' is not in the list of allowed values"
	msgTooShort     = "The value of '%s' has fewer characters than the required minimum"
	msgTooLong      = "The value of '%s' has more characters/items than the allowed maximum"
	msgNoLength     = "The value of '%s' has no measurable length"
	msgRangeNotDate = "The value of field '%s' is not a valid date"
	msgBelowMin     = "The value of %s must be greater than or equal to %s"
	msgAboveMax     = "The value of %s must be less than or equal to %s"
	msgRangeType    = "The value of '%s' must be a number or a date"
	msgNoMatch      = "The value of field '%s' does not match the required format"
	msgNotEqual     = "The value of field '%s' is different from the value of '%s'"
	msgExprFailed   = "The value of field '%s' does not satisfy the configured condition"
	msgRequired     = "A value is required for field '%s'"
	msgNotAllowed   = "'%s' is not a valid field for this request"
	msgUnknownError = "Unknown error while validating data"
)

var ptBR = map[string]string{
	msgNotArray:     "O valor de '%s' não é um Array",
	msgNotDate:      "O valor de '%s' não corresponde à uma data válida",
	msgWrongType:    "O valor de '%s' não corresponde ao tipo de dado exigido",
	msgNotInList:    "O valor '%s' em '%s' não está presente na lista de valores permitidos",
	msgTooShort:     "O valor de '%s' não possui a quantidade mínima de caracteres exigida",
	msgTooLong:      "O valor de '%s' possui quantidade de caracteres/ítens maior que o máximo permitido",
	msgNoLength:     "O valor de '%s' não possui tamanho mensurável",
	msgRangeNotDate: "Valor do campo '%s' não corresponde à uma data válida",
	msgBelowMin:     "O valor de %s necessita ser maior ou igual a %s",
	msgAboveMax:     "O valor de %s necessita ser menor ou igual a %s",
	msgRangeType:    "O valor de '%s' precisa ser um número ou uma data",
	msgNoMatch:      "O valor do campo '%s' não corresponde ao formato de dado exigido",
	msgNotEqual:     "O valor do campo '%s' é diferente do valor de '%s'",
	msgExprFailed:   "O valor do campo '%s' não satisfaz a condição configurada",
	msgRequired:     "É obrigatório atribuir valor ao campo '%s'",
	msgNotAllowed:   "'%s' não é um campo válido para requisição efetuada",
	msgUnknownError: "Erro desconhecido ao validar os dados",
}

// SupportedLocales lists the locales with a message catalog. The first entry
// is the default.
var SupportedLocales = []language.Tag{language.English, language.BrazilianPortuguese}

var (
	messages      = buildCatalog()
	localeMatcher = language.NewMatcher(SupportedLocales)
)

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, msg := range ptBR {
		if err := b.SetString(language.English, key, key); err != nil {
			panic(err)
		}
		if err := b.SetString(language.BrazilianPortuguese, key, msg); err != nil {
			panic(err)
		}
	}
	return b
}

// MatchLocale picks the closest supported locale for a BCP 47 string such as
// "pt-BR" or "pt". Empty or unparseable input yields English.
func MatchLocale(s string) language.Tag {
	s = strings.TrimSpace(s)
	if s == "" {
		return SupportedLocales[0]
	}
	tag, err := language.Parse(s)
	if err != nil {
		return SupportedLocales[0]
	}
	_, idx, _ := localeMatcher.Match(tag)
	return SupportedLocales[idx]
}

func newPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(messages))
}
