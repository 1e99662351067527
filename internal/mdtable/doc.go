// Package mdtable rewrites markdown table rows into the canonical
// "| cell | cell |" layout required by the MD060 table-column-style rule.
//
// The package is line-oriented: a Scanner classifies each line (fence marker,
// fenced content, table row, anything else) and only table rows are rebuilt.
// Everything else, including every line inside a fenced code block, is copied
// byte-for-byte.
//
// Не делает: разбор markdown целиком, проверку числа колонок, выравнивание по
// ширине символов. Зависимости: internal/trace.
package mdtable
