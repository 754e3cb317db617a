// SPDX-License-Identifier: MPL-2.0

// Package issue provides the walrus CLI's user-facing errors and its
// Markdown troubleshooting pages.
//
// An Error says which operation failed and what to try next. When it links
// an Issue, the CLI renders that page with glamour below the message.
package issue
