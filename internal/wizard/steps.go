package wizard

import (
	"github.com/kombat1337-ui/Support-bot/internal/domain"
	"github.com/kombat1337-ui/Support-bot/internal/i18n"
)

const (
	LanguageRussian = i18n.Russian
	LanguageEnglish = i18n.English
	LanguageAnother = "another"
)

// Languages lists the selectable language codes in menu order.
var Languages = []string{LanguageRussian, LanguageEnglish, LanguageAnother}

// ValidLanguage reports whether lang is one of Languages.
func ValidLanguage(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// DisplayLanguage maps a stored language code onto a language with translations.
// "another" and unknown codes render in English.
func DisplayLanguage(lang string) string {
	return i18n.DisplayLanguage(lang)
}

type stepLabel struct {
	ru string
	en string
}

var stepLabels = [domain.StepCount]stepLabel{
	{ru: "О каком продукте идёт речь?", en: "Which product?"},
	{ru: "Игра", en: "Game"},
	{ru: "Версия Windows, например Windows 10 22H2", en: "Windows version, e.g. Windows 10 22H2"},
	{ru: "Опишите проблему как можно подробнее", en: "Describe your problem in as much detail as possible"},
	{ru: "Фото ошибки или проблемы, msinfo32 и winver", en: "Photo of the error or problem, msinfo32 and winver"},
	{ru: "Видео проблемы, если требуется", en: "Video of the problem, if needed"},
	{ru: "Вам ответят как можно скорее, с 7:00 до 21:00 МСК", en: "You will be answered as soon as possible"},
}

// StepLabel returns the question for step index i in the given language.
func StepLabel(i int, lang string) string {
	if i < 0 || i >= domain.StepCount {
		return ""
	}
	if DisplayLanguage(lang) == LanguageRussian {
		return stepLabels[i].ru
	}
	return stepLabels[i].en
}
