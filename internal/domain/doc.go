// Package domain models chess.com game archives and their flattening into a
// per-player tabular dataset.
//
// # Data Source
//
// Games come from the chess.com published-data API
// (https://www.chess.com/news/view/published-data-api). A player's history
// is split into monthly archives:
//
//	GET /pub/player/{username}/games/archives  → {"archives": ["…/games/2024/03", …]}
//	GET /pub/player/{username}/games/{YYYY}/{MM} → {"games": [{…}, …]}
//
// Archive locators are returned oldest first. The year and month of a
// locator are its last two path segments (see [ArchiveLocator.YearMonth]).
//
// # Raw game conventions
//
// Each game carries a PGN text blob whose Date tag holds the game date as
// "YYYY.MM.DD"; unknown parts are written as "??" and such dates are
// treated as absent. The "eco" field is a URL whose last path segment is
// the opening name or ECO code. "accuracies" is only present for games that
// were reviewed; either side may be missing.
//
// Each side ("white", "black") has a username, a rating and a result code.
// Result codes are per side: the winner gets "win", the loser gets how the
// game was lost.
//
// Result classification, from the queried player's code:
//
//	win  ← win
//	loss ← resigned, timeout, checkmated
//	draw ← draw, stalemate, insufficientmaterial, 50move, agreed, repetition
//	N/A  ← anything else (abandoned, lose, variant-specific codes, …)
//
// # Player matching
//
// Usernames are compared case-insensitively. A game in which neither side
// is the queried player yields [ErrPlayerNotInGame] and is dropped.
package domain
