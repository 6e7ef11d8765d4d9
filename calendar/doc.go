// Package calendar holds the per-user task calendar: the Event record, the
// parsing rules for dates, times and priorities, the Store contract and an
// in-memory Store with one independently locked partition per user.
//
// Every Store operation is scoped to a single user id and never reads or
// writes another user's events. Dates are ISO calendar dates (YYYY-MM-DD) and
// times are 24h HH:MM; malformed input falls back to today and 09:00.
package calendar
