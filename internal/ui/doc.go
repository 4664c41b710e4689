// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI is a thin presentation layer over the movie, session and favorites stores:
//  1. [BrowseView] : Trending movies, filtered by genre tabs
//  2. [DetailView] : One movie with recommendations and a favorite toggle
//  3. [FavoritesView] : The signed-in user's favorites, protected by a [guard.Guard]
//  4. [LoginView] : Username and password form
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern. Every asynchronous
// load carries a [guard.Ticket]; a result whose ticket was superseded (the user moved on, or issued a
// newer load) is dropped instead of overwriting the screen.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, tab, q) with contextual help displayed via
// charmbracelet/bubbles/help.
package ui
