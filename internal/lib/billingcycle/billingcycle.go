// Package billingcycle содержит чистые функции расчёта биллингового цикла,
// привязанного к дню месяца из даты старта подписки. Цикл "обновляется N-го
// числа каждого месяца", а не через 30 прошедших дней.
package billingcycle

import "time"

// CycleIDLayout — формат строкового идентификатора цикла.
const CycleIDLayout = "2006-01-02"

// CurrentCycle возвращает идентификатор текущего цикла в формате YYYY-MM-DD.
// День цикла равен дню месяца даты anchor; если текущий день месяца меньше
// дня anchor, цикл принадлежит предыдущему календарному месяцу
// (с переходом через год в январе). Если дня anchor в целевом месяце нет
// (31-е в коротком месяце), берётся последний день месяца.
func CurrentCycle(anchor, now time.Time) string {
	year, month := now.Year(), now.Month()
	if now.Day() < anchor.Day() {
		month--
		if month < time.January {
			month = time.December
			year--
		}
	}
	return dateWithDay(year, month, anchor.Day()).Format(CycleIDLayout)
}

// NextResetDate возвращает ближайшую дату с днём месяца anchor,
// строго позднее now. Если в текущем месяце эта дата уже прошла,
// берётся следующий месяц.
func NextResetDate(anchor, now time.Time) time.Time {
	reset := dateWithDay(now.Year(), now.Month(), anchor.Day())
	if !reset.After(now) {
		reset = dateWithDay(now.Year(), now.Month()+1, anchor.Day())
	}
	return reset
}

// dateWithDay строит дату, ограничивая день последним днём месяца.
func dateWithDay(year int, month time.Month, day int) time.Time {
	// День 0 следующего месяца — последний день целевого.
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
