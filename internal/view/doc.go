// Package view turns fetched series into dashboard render models.
//
// A render model is a State: {Status, Data, Error}. States only change
// through Reduce, which is pure. Each series in a page carries its own
// State, so a failed series degrades the page instead of failing it.
package view
