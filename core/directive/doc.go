// Package directive turns raw command lines into pipelines of directives.
package directive

/**
1. The shell reads one line of input and strips the trailing newline.

2. The line is split on the pipe delimiter (|) into segments. Each segment is
one stage of the pipeline.

3. Each segment is trimmed and tokenized character by character. Tokens are
runs of characters that are neither whitespace nor one of the redirection
operators < > >>. There is no quoting, escaping, globbing or expansion.

4. The first token is the command. Tokens after < and > (or >>) name the input
and output files of the stage, every other token is an argument.

5. A segment without a command, or with more than one input or output file, is
rejected, and so is the whole line.
**/
