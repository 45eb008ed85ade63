// read-table driven lisp reader
//
// a ReadTable pulls codepoints from a Source one at a time and checks each
// against its dispatch table before anything else. a bound codepoint invokes
// its Macro; an unbound codepoint is either skipped as whitespace or starts
// an atom. because dispatch comes first, a macro bound to a whitespace
// character (e.g. '\n') observes every occurrence of it.
//
// examples:
//
//   t := readtable.NewString("(foo (bar) baz)")
//   t.AddMacro('(', readtable.NewAccumulator(")"))
//   t.AddMacro(')', readtable.NewSingleChar(")"))
//   n, err := t.Read() // (foo (bar) baz)
//
// read loop:
//  <read>        :: ( <macro-skip> | <whitespace> )* ( <macro-value> | <atom> | EOF ) ;
//
//  <macro-skip>  :: <bound-char> ; macro returned no value
//  <macro-value> :: <bound-char> ; macro returned a value
//
//  <atom>        :: <atom-char>+ ;
//  <atom-char>   :: <any char except bound-char, whitespace> ;
//
// macro results:
//   (n, nil)       value produced, Read returns n
//   (nil, nil)     no value, keep scanning
//   (nil, io.EOF)  end of input
//   (_, err)       Read fails with err

package readtable
