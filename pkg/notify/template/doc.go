// Package template renders notification content from named templates and a
// typed variable bag.
//
// The syntax supports plain substitution ({{key}}), conditional blocks
// ({{#if key}}...{{/if}}), and repetition over lists ({{#each key}}...{{/each}}
// with {{.}} as the current element). Rendering never fails: unknown
// templates and missing variables degrade to blanks with logged warnings.
package template
