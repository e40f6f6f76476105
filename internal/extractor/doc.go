// Package extractor turns fetched pages into markdown and discovers links.
//
// For HTML the extractor:
//
//  1. collects followable links from <a href> and <area href>
//  2. renders the whole <body> as the fallback markdown
//  3. strips boilerplate (navigation, headers, footers, forms, scripts)
//  4. renders the main content region as the primary markdown
//
// The primary rendering is preferred; the fallback is used only when the
// main region has no text. With readability enabled the primary rendering
// comes from go-readability instead of the selector based main region.
//
// text/* bodies that are not HTML are passed through verbatim. Other
// content types are rejected with an *ExtractionError.
package extractor
