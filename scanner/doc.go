/*
Package scanner defines an interface for scanners and an adapter for
lexmachine DFAs implementing it.

Clients configure an LMAdapter with their own token patterns, keywords and
literal operators, then create one LMScanner per input text. Scanners report
lexical errors to an error handler and continue behind the offending
input, so a single stray character does not abort scanning.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2026 Norbert Pillmayer <norbert@pillmayer.com>

*/
package scanner
