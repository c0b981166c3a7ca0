package presentation

import (
	"fmt"
	"strings"
	"time"
)

// Locale selects the language of display strings
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleES Locale = "es"
)

// ParseLocale resolves a locale name; an empty name is English
func ParseLocale(s string) (Locale, error) {
	switch Locale(strings.ToLower(strings.TrimSpace(s))) {
	case "", LocaleEN:
		return LocaleEN, nil
	case LocaleES:
		return LocaleES, nil
	default:
		return "", fmt.Errorf("unsupported locale %q", s)
	}
}

type labels struct {
	months [12]string

	title          string
	completeNormal string
	periodWarning  string
	gapNotice      string

	consistency   string
	doubleMassR2  string
	cv            string
	missingPct    string
	adjustment    string
	applied       string
	notRequired   string
	notAvailable  string
	unknownMethod string

	meanSeries string
	maxSeries  string
	minSeries  string
	yAxis      string

	dailyMax   string
	monthlyMax string
	wetRegime  string
	dryRegime  string
	dateDetail string
	monthLabel string
}

var translations = map[Locale]*labels{
	LocaleEN: {
		months: [12]string{
			"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December",
		},
		title:          "Rainfall seasonality: %s",
		completeNormal: "Series with a complete 1991-2020 climatological normal.",
		periodWarning:  "Warning: period outside the 1991-2020 standard normal or with missing years in the range.",
		gapNotice:      "No data for: %s",
		consistency:    "Consistency level",
		doubleMassR2:   "Double-mass R²",
		cv:             "Coefficient of variation (CV)",
		missingPct:     "Original gaps",
		adjustment:     "Series adjustment",
		applied:        "Applied",
		notRequired:    "Not required",
		notAvailable:   "N/A",
		unknownMethod:  "Unknown",
		meanSeries:     "Monthly mean",
		maxSeries:      "Historical monthly max.",
		minSeries:      "Historical monthly min.",
		yAxis:          "Precipitation (mm)",
		dailyMax:       "24h historical maximum",
		monthlyMax:     "Historical monthly maximum",
		wetRegime:      "Wet regime",
		dryRegime:      "Dry regime",
		dateDetail:     "Date: %s",
		monthLabel:     "Month: %s %d",
	},
	LocaleES: {
		months: [12]string{
			"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
			"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
		},
		title:          "Estacionalidad de lluvias: %s",
		completeNormal: "Serie con normal climatológica completa.",
		periodWarning:  "Atención: periodo fuera de la normal estándar 1991-2020 o con años faltantes en el rango.",
		gapNotice:      "Sin datos para: %s",
		consistency:    "Nivel consistencia",
		doubleMassR2:   "R² doble masa",
		cv:             "Coef. variación (CV)",
		missingPct:     "Vacíos originales",
		adjustment:     "Ajuste serie",
		applied:        "Aplicado",
		notRequired:    "No requerido",
		notAvailable:   "N/A",
		unknownMethod:  "Desconocido",
		meanSeries:     "Promedio mensual",
		maxSeries:      "Máx. mensual histórico",
		minSeries:      "Mín. mensual histórico",
		yAxis:          "Precipitación (mm)",
		dailyMax:       "Máximo histórico en 24h",
		monthlyMax:     "Máximo mensual histórico",
		wetRegime:      "Régimen lluvioso",
		dryRegime:      "Régimen seco",
		dateDetail:     "Fecha: %s",
		monthLabel:     "Mes: %s %d",
	},
}

func labelsFor(loc Locale) *labels {
	if l, ok := translations[loc]; ok {
		return l
	}
	return translations[LocaleEN]
}

// MonthName returns the localized name of m
func MonthName(m time.Month, loc Locale) string {
	if m < time.January || m > time.December {
		return ""
	}
	return labelsFor(loc).months[m-1]
}
