/*

Process of compilation

Program Text ->
	lex + parse ->
Parse Tree (ast) ->
	analyze ->
Typed Tree (ast + types) ->
	codegen ->
Venice Intermediate Language (vil) ->
	lower ->
Assembly Text (x86, nasm syntax) ->
	nasm ->
Binary Object ->
	ld ->
Binary Executable

Each stage either produces the next form or stops the pipeline with the
diagnostics it accumulated.

*/
package compiler
