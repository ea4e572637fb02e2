// Package islands implements partial hydration. An island is a
// server-rendered component subtree that is also hydrated independently on
// the client, enabling interactivity without hydrating the whole page.
//
// Islands register themselves in a per-render Registry while the page
// renders; BootstrapScript turns the collected records into one module
// script keyed by loading strategy.
package islands
