// Package bytecode reads and writes AVM1 action streams.
//
// An action stream is a flat sequence of records. Each record starts with
// a one-byte opcode; opcodes with the high bit set are followed by a
// little-endian u16 payload length and that many payload bytes. Function
// bodies and try/catch/finally blocks are stored inline, right after the
// record that declares them, and are delimited by sizes in that record.
//
// # Components
//
//   - Buffer: an immutable stream with bounds-checked reads. Out-of-range
//     reads yield zero values so a malformed stream never panics. Constant
//     pools are decoded once at construction.
//
//   - Decoders: DecodePush, DecodeConstantPool, DecodeFunction, DecodeTry
//     and friends turn payloads into structs. They return a best-effort
//     result together with a *MalformedError.
//
//   - Assembler: builds streams from opcodes and symbolic labels. Used by
//     tests and the avm tool to produce fixtures.
//
//   - Disassembler: renders a listing, optionally with ANSI colors.
//
//   - Container: a canonical CBOR envelope carrying a stream plus its name,
//     SWF version and dictionary, for storage outside a SWF file.
//
// # Numbers
//
// Doubles in Push records are stored as two little-endian 32-bit words with
// the high word first. ReadFloat64 and the assembler handle the swap.
//
// # Strings
//
// SWF6 and later store UTF-8. Earlier movies use a locale code page;
// StringDecoder converts those strings with golang.org/x/text.
package bytecode
