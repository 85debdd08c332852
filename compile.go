package main

// Compile runs the whole pipeline on src. Emitter diagnostics are only kept
// when the source parsed cleanly; otherwise they repeat what the parser
// already reported about its placeholder nodes.
func Compile(src string, target Target) (*Program, string, *ErrorList) {
	ast, errs := ParseSource(src)
	asm, emitErrs := EmitWithErrors(ast, target)
	if !errs.HasErrors() {
		errs.Append(emitErrs)
	}
	return ast, asm, errs
}
